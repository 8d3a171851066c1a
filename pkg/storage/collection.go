package storage

import (
	"fmt"

	"github.com/rubiojr/codesnippets/pkg/core"
)

// Collection describes where a kind is stored and which list columns it has.
type Collection struct {
	Kind     core.Kind
	Table    string
	FTSTable string
	// HasLanguage and HasTags are false for snapshots, which project
	// constant placeholders instead.
	HasLanguage bool
	HasTags     bool
}

var (
	Snippets = Collection{
		Kind:        core.KindSnippets,
		Table:       "snippets",
		FTSTable:    "snippets_fts",
		HasLanguage: true,
		HasTags:     true,
	}
	Snapshots = Collection{
		Kind:     core.KindSnapshots,
		Table:    "snapshots",
		FTSTable: "snapshots_fts",
	}
)

// CollectionFor returns the collection storing kind.
func CollectionFor(kind core.Kind) (Collection, error) {
	switch kind {
	case core.KindSnippets:
		return Snippets, nil
	case core.KindSnapshots:
		return Snapshots, nil
	}
	return Collection{}, fmt.Errorf("unknown kind %q", kind)
}

// listColumns is the list projection, in the order scanItem expects.
func (c Collection) listColumns() string {
	language := "'' AS language"
	if c.HasLanguage {
		language = "t.language"
	}
	tags := "'[]' AS tags"
	if c.HasTags {
		tags = "t.tags"
	}
	return "t.id, t.title, t.description, " + language + ", " + tags +
		", t.publisher_id, t.publisher_name, t.created_at, t.updated_at"
}
