package search

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/cursor"
)

// Limits bound the page size accepted from clients.
type Limits struct {
	Default int
	Min     int
	Max     int
}

// DefaultLimits returns a default page size of 10 clamped to [1, 20].
func DefaultLimits() Limits {
	return Limits{Default: 10, Min: 1, Max: 20}
}

// Normalize fixes inconsistent limits so that Min <= Default <= Max.
func (l Limits) Normalize() Limits {
	if l.Min < 1 {
		l.Min = 1
	}
	if l.Max < l.Min {
		l.Max = l.Min
	}
	if l.Default < l.Min || l.Default > l.Max {
		l.Default = min(max(l.Default, l.Min), l.Max)
	}
	return l
}

// Clamp applies the limits to a requested page size. Zero means "not given".
func (l Limits) Clamp(n int) int {
	if n == 0 {
		return l.Default
	}
	return min(max(n, l.Min), l.Max)
}

// SearchParams are the normalized parameters of one search request.
type SearchParams struct {
	// Kind is the collection searched.
	Kind core.Kind

	// Query is the storage-level query: filters, cursor and clamped limit.
	Query core.SearchQuery
}

// ParseSearchParams parses HTTP query parameters into normalized
// SearchParams. Parsing never fails: bad values fall back to defaults.
//
// Supported parameters:
//   - limit: page size, clamped to limits; non-numeric values use the default
//   - cursor: opaque pagination cursor; a malformed cursor is ignored
//   - id: exact item id, overrides every other filter and the cursor
//   - user: publisher name
//   - language (alias lang): snippets only
//   - tag: snippets only
//   - search: free text matched against title and description
//
// Example:
//
//	params := ParseSearchParams(core.KindSnippets, r.URL.Query(), DefaultLimits())
func ParseSearchParams(kind core.Kind, queryParams url.Values, limits Limits) SearchParams {
	limits = limits.Normalize()

	limit := limits.Default
	if raw := strings.TrimSpace(queryParams.Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = limits.Clamp(parsed)
		}
	}

	id := strings.TrimSpace(queryParams.Get("id"))
	user := strings.TrimSpace(queryParams.Get("user"))
	freeText := strings.Join(strings.Fields(queryParams.Get("search")), " ")

	var filters core.Filters
	switch kind {
	case core.KindSnapshots:
		filters = core.SnapshotFilters{ExactID: id, Publisher: user, FreeText: freeText}
	default:
		kind = core.KindSnippets
		language := strings.TrimSpace(queryParams.Get("language"))
		if language == "" {
			language = strings.TrimSpace(queryParams.Get("lang"))
		}
		filters = core.SnippetFilters{
			ExactID:   id,
			Publisher: user,
			Language:  language,
			Tag:       strings.TrimSpace(queryParams.Get("tag")),
			FreeText:  freeText,
		}
	}

	if id != "" {
		// everything else is ignored for an exact id lookup
		if kind == core.KindSnapshots {
			filters = core.SnapshotFilters{ExactID: id}
		} else {
			filters = core.SnippetFilters{ExactID: id}
		}
	}

	params := SearchParams{
		Kind:  kind,
		Query: core.SearchQuery{Filters: filters, Limit: limit},
	}

	if raw := queryParams.Get("cursor"); raw != "" && id == "" {
		c, err := cursor.Decode(raw)
		switch {
		case errors.Is(err, cursor.ErrInvalidCursor):
			logger.Debugf("ignoring malformed cursor %q", raw)
		case err != nil:
			logger.Debugf("ignoring cursor %q: %v", raw, err)
		default:
			if freeText == "" {
				// rank only orders relevance-sorted pages
				c.Rank, c.Ranked = 0, false
			}
			params.Query.Cursor = &c
		}
	}

	return params
}

// Canonical returns the normalized parameters encoded with sorted keys.
// Logically identical requests have identical canonical forms.
func (p SearchParams) Canonical() string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(p.Query.Limit))

	var f core.FilterFields
	if p.Query.Filters != nil {
		f = p.Query.Filters.Fields()
	}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("id", f.ExactID)
	set("user", f.Publisher)
	set("language", f.Language)
	set("tag", f.Tag)
	set("search", f.FreeText)
	if p.Query.Cursor != nil {
		v.Set("cursor", cursor.Encode(*p.Query.Cursor))
	}
	return v.Encode()
}
