package search

import (
	"encoding/json"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/cursor"
	"github.com/rubiojr/codesnippets/pkg/wire"
)

// Response is a search envelope. Items are encoded under the kind's name
// ("snippets" or "snapshots").
type Response struct {
	Kind       core.Kind
	Success    bool
	Message    string
	Items      []any
	Pagination *wire.Pagination
}

// MarshalJSON encodes the envelope. Failure envelopes carry only success and
// message.
func (r *Response) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{false, r.Message})
	}

	items := r.Items
	if items == nil {
		items = []any{}
	}
	env := map[string]any{
		"success":       true,
		"pagination":    r.Pagination,
		r.Kind.String(): items,
	}
	if r.Message != "" {
		env["message"] = r.Message
	}
	return json.Marshal(env)
}

// Assemble shapes storage rows into a success envelope.
//
// rows may hold one row more than limit; that lookahead row only signals a
// next page and is dropped. The next cursor points at the last row kept and
// carries its rank when the rows were relevance-sorted. total is the count
// of every match, and zero when unknown.
//
// Parameters:
//   - kind: collection the rows come from, selects the item shape and key
//   - rows: at most limit+1 rows in page order
//   - limit: page size, must be positive
//   - total: count of all matching items
func Assemble(kind core.Kind, rows []core.Item, limit, total int) *Response {
	if limit <= 0 {
		limit = 1
	}
	if total < 0 {
		total = 0
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	items := make([]any, 0, len(rows))
	for _, row := range rows {
		items = append(items, kind.Shape(row))
	}

	p := &wire.Pagination{
		TotalCount:  total,
		Limit:       limit,
		TotalPages:  (total + limit - 1) / limit,
		HasNextPage: hasNext,
	}
	if hasNext {
		last := rows[len(rows)-1]
		c := cursor.New(last.CreatedAt, last.ID)
		if last.Ranked {
			c = cursor.NewRanked(last.CreatedAt, last.ID, last.Rank)
		}
		next := cursor.Encode(c)
		p.NextCursor = &next
	}

	return &Response{
		Kind:       kind,
		Success:    true,
		Items:      items,
		Pagination: p,
	}
}

// Failure returns a failure envelope. It never carries items.
func Failure(message string) *Response {
	return &Response{Message: message}
}
