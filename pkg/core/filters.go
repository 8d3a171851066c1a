package core

import "github.com/rubiojr/codesnippets/pkg/cursor"

// Filters is implemented by the closed per-kind filter structs. Only the
// fields a kind supports can be set, so an unsupported filter is a compile
// error rather than a silently ignored map key.
type Filters interface {
	Kind() Kind
	Fields() FilterFields
}

// FilterFields is the kind-independent view of a filter struct consumed by
// the query builder. Empty strings mean "no filter".
type FilterFields struct {
	ExactID   string
	Publisher string
	Language  string
	Tag       string
	FreeText  string
}

// SnippetFilters are the filters supported by snippet searches.
type SnippetFilters struct {
	ExactID   string
	Publisher string
	Language  string
	Tag       string
	FreeText  string
}

func (SnippetFilters) Kind() Kind { return KindSnippets }

func (f SnippetFilters) Fields() FilterFields {
	return FilterFields{
		ExactID:   f.ExactID,
		Publisher: f.Publisher,
		Language:  f.Language,
		Tag:       f.Tag,
		FreeText:  f.FreeText,
	}
}

// SnapshotFilters are the filters supported by snapshot searches.
type SnapshotFilters struct {
	ExactID   string
	Publisher string
	FreeText  string
}

func (SnapshotFilters) Kind() Kind { return KindSnapshots }

func (f SnapshotFilters) Fields() FilterFields {
	return FilterFields{
		ExactID:   f.ExactID,
		Publisher: f.Publisher,
		FreeText:  f.FreeText,
	}
}

// SearchQuery is the per-request search value object. It is never persisted.
type SearchQuery struct {
	Filters Filters
	// Cursor resumes after the last item of a previous page. Nil means the
	// first page.
	Cursor *cursor.Cursor
	Limit  int
}

// Kind returns the kind targeted by the query.
func (q SearchQuery) Kind() Kind {
	if q.Filters == nil {
		return KindSnippets
	}
	return q.Filters.Kind()
}
