// Package query parses the free-text search mini-language typed by users,
// e.g. "react fetch user:alice lang:ts tag:hooks", into structured filters
// and the remaining free text.
package query

import (
	"net/url"
	"strings"
)

// Recognized filter keys.
const (
	KeyID   = "id"
	KeyUser = "user"
	KeyLang = "lang"
	KeyTag  = "tag"
)

// Filters holds the recognized key:value tokens of a query.
type Filters struct {
	ID   string
	User string
	Lang string
	Tag  string
}

// Empty reports whether no filter was recognized.
func (f Filters) Empty() bool {
	return f == Filters{}
}

// Query is a parsed search string.
type Query struct {
	Filters  Filters
	FreeText string
}

// Parse splits raw into filters and free text.
//
// Whitespace-delimited tokens of the form key:value, where key is one of
// id, user, lang or tag and value is non-empty, are removed from the free
// text. When a key is repeated the first value wins; later occurrences are
// still removed. Any other token, including key:value tokens with unknown
// keys, is kept. The free text is re-joined with single spaces. Parse never
// fails.
func Parse(raw string) Query {
	var q Query
	var free []string

	for _, tok := range strings.Fields(raw) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			free = append(free, tok)
			continue
		}

		var dst *string
		switch key {
		case KeyID:
			dst = &q.Filters.ID
		case KeyUser:
			dst = &q.Filters.User
		case KeyLang:
			dst = &q.Filters.Lang
		case KeyTag:
			dst = &q.Filters.Tag
		default:
			free = append(free, tok)
			continue
		}

		if *dst == "" {
			*dst = value
		}
	}

	q.FreeText = strings.Join(free, " ")
	return q
}

// Values returns the HTTP query parameters understood by the search
// endpoints for q, resuming after cursor when it is non-empty.
func (q Query) Values(cursor string) url.Values {
	v := url.Values{}
	if cursor != "" {
		v.Set("cursor", cursor)
	}
	if q.Filters.ID != "" {
		v.Set("id", q.Filters.ID)
	}
	if q.Filters.User != "" {
		v.Set("user", q.Filters.User)
	}
	if q.Filters.Lang != "" {
		v.Set("language", q.Filters.Lang)
	}
	if q.Filters.Tag != "" {
		v.Set("tag", q.Filters.Tag)
	}
	if q.FreeText != "" {
		v.Set("search", q.FreeText)
	}
	return v
}
