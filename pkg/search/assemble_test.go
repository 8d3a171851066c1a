package search

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(n int) []core.Item {
	base := time.Date(2024, 9, 27, 12, 0, 0, 0, time.UTC)
	items := make([]core.Item, n)
	for i := range items {
		items[i] = core.Item{
			ID:            fmt.Sprintf("0192a000-0000-7000-8000-%012d", n-i),
			Title:         fmt.Sprintf("item %d", i),
			Language:      "go",
			PublisherName: "alice",
			CreatedAt:     base.Add(-time.Duration(i) * time.Second),
		}
	}
	return items
}

func TestAssembleWithLookahead(t *testing.T) {
	in := rows(11)
	resp := Assemble(core.KindSnippets, in, 10, 25)

	require.Len(t, resp.Items, 10)
	p := resp.Pagination
	assert.True(t, p.HasNextPage)
	assert.Equal(t, 25, p.TotalCount)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, p.Limit)

	require.NotNil(t, p.NextCursor)
	c, err := cursor.Decode(*p.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, in[9].ID, c.ID)
	assert.True(t, c.CreatedAt.Equal(in[9].CreatedAt))
	assert.False(t, c.Ranked)
}

func TestAssembleLastPage(t *testing.T) {
	resp := Assemble(core.KindSnippets, rows(5), 10, 25)
	assert.Len(t, resp.Items, 5)
	assert.False(t, resp.Pagination.HasNextPage)
	assert.Nil(t, resp.Pagination.NextCursor)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nextCursor":null`)
}

func TestAssembleRankedCursor(t *testing.T) {
	in := rows(3)
	for i := range in {
		in[i].Ranked = true
		in[i].Rank = -3 + float64(i)
	}
	resp := Assemble(core.KindSnippets, in, 2, 3)
	require.NotNil(t, resp.Pagination.NextCursor)
	c, err := cursor.Decode(*resp.Pagination.NextCursor)
	require.NoError(t, err)
	assert.True(t, c.Ranked)
	assert.Equal(t, -2.0, c.Rank)
}

func TestAssembleEmpty(t *testing.T) {
	resp := Assemble(core.KindSnapshots, nil, 10, 0)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": true,
		"snapshots": [],
		"pagination": {"totalCount": 0, "limit": 10, "totalPages": 0, "hasNextPage": false, "nextCursor": null}
	}`, string(data))
}

func TestAssembleShapesByKind(t *testing.T) {
	in := rows(1)
	in[0].PublisherName = ""

	data, err := json.Marshal(Assemble(core.KindSnapshots, in, 10, 1))
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	require.Contains(t, env, "snapshots")
	assert.NotContains(t, env, "snippets")

	var items []map[string]any
	require.NoError(t, json.Unmarshal(env["snapshots"], &items))
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "language")
	assert.NotContains(t, items[0], "tags")
	assert.Equal(t, "Unknown", items[0]["publisherName"])
}

func TestFailurePayload(t *testing.T) {
	assert.JSONEq(t, `{"success":false,"message":"boom"}`, string(FailurePayload("boom")))
}
