package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rubiojr/codesnippets/pkg/core"
)

// DefaultLimit is used when a query carries no positive limit.
const DefaultLimit = 10

// Pipeline is a compiled search: a statement returning one page of rows
// (plus one lookahead row) and a statement counting every match.
type Pipeline struct {
	Kind core.Kind

	ItemsSQL  string
	ItemsArgs []any

	CountSQL  string
	CountArgs []any

	// Limit is the page size. ItemsSQL fetches Limit+1 rows.
	Limit int
	// Ranked is true when rows are sorted by text relevance first.
	Ranked bool
}

// Build compiles q into a Pipeline over collection c.
//
// Stages, in order: match (exact id, or the conjunction of publisher,
// language, tag and text filters), cursor predicate, sort, limit+1 and list
// projection. The count statement reuses the match stage only.
func Build(q core.SearchQuery, c Collection) (*Pipeline, error) {
	if q.Kind() != c.Kind {
		return nil, fmt.Errorf("query kind %s does not match collection %s", q.Kind(), c.Kind)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var f core.FilterFields
	if q.Filters != nil {
		f = q.Filters.Fields()
	}

	p := &Pipeline{Kind: c.Kind, Limit: limit}

	from := c.Table + " t"
	rank := "0 AS rank"
	var (
		where    []string
		args     []any
		rankArgs []any
	)

	if f.ExactID != "" {
		id, err := uuid.Parse(f.ExactID)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q is not a valid identifier", ErrInvalidFilter, f.ExactID)
		}
		// an exact id ignores every other filter and the cursor
		where = append(where, "t.id = ?")
		args = append(args, id.String())
	} else {
		if f.Publisher != "" {
			where = append(where, "t.publisher_name = ?")
			args = append(args, f.Publisher)
		}
		if f.Language != "" && c.HasLanguage {
			where = append(where, "t.language = ?")
			args = append(args, f.Language)
		}
		if f.Tag != "" && c.HasTags {
			where = append(where, "EXISTS (SELECT 1 FROM json_each(t.tags) WHERE json_each.value = ?)")
			args = append(args, f.Tag)
		}
		if terms := ftsTerms(f.FreeText); len(terms) > 0 {
			matched := "t.seq IN (SELECT rowid FROM " + c.FTSTable + " WHERE " + c.FTSTable + " MATCH ?)"
			where = append(where, matched)
			args = append(args, strings.Join(terms, " OR "))

			// the score is the number of distinct query terms a row contains,
			// so it never moves when other rows are written
			hits := make([]string, 0, len(terms))
			for _, term := range terms {
				hits = append(hits, "("+matched+")")
				rankArgs = append(rankArgs, term)
			}
			rank = "(" + strings.Join(hits, " + ") + ") AS rank"
			p.Ranked = true
		}
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	match := "SELECT " + c.listColumns() + ", " + rank + " FROM " + from + whereSQL

	p.CountSQL = "SELECT COUNT(*) FROM " + from + whereSQL
	p.CountArgs = append([]any(nil), args...)

	var sb strings.Builder
	sb.WriteString("WITH m AS (")
	sb.WriteString(match)
	sb.WriteString(") SELECT m.id, m.title, m.description, m.language, m.tags, m.publisher_id, m.publisher_name, m.created_at, m.updated_at, m.rank FROM m")

	itemsArgs := append(append([]any(nil), rankArgs...), args...)
	if q.Cursor != nil && f.ExactID == "" {
		cur := q.Cursor
		ts := cur.CreatedAt.UTC().UnixNano()
		if p.Ranked && cur.Ranked {
			sb.WriteString(" WHERE (m.rank < ? OR (m.rank = ? AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))))")
			itemsArgs = append(itemsArgs, cur.Rank, cur.Rank, ts, ts, cur.ID)
		} else {
			sb.WriteString(" WHERE (m.created_at < ? OR (m.created_at = ? AND m.id < ?))")
			itemsArgs = append(itemsArgs, ts, ts, cur.ID)
		}
	}

	if p.Ranked {
		sb.WriteString(" ORDER BY m.rank DESC, m.created_at DESC, m.id DESC")
	} else {
		sb.WriteString(" ORDER BY m.created_at DESC, m.id DESC")
	}
	sb.WriteString(" LIMIT ?")
	itemsArgs = append(itemsArgs, limit+1)

	p.ItemsSQL = sb.String()
	p.ItemsArgs = itemsArgs
	return p, nil
}

// ftsExpression turns free text into an FTS5 query matching any of its
// terms.
func ftsExpression(text string) string {
	return strings.Join(ftsTerms(text), " OR ")
}

// ftsTerms returns the distinct terms of text as quoted FTS5 strings, so user
// input never reaches the FTS5 query syntax. Terms are compared case
// insensitively, like the FTS5 tokenizer does.
func ftsTerms(text string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, term := range strings.Fields(text) {
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return terms
}
