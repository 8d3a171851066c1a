package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/codesnippets/pkg/api"
	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/query"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/rubiojr/codesnippets/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "client-test-secret"

func newTestServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 9, 27, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, store.InsertSnippet(ctx, &core.Snippet{
			SnippetSummary: core.SnippetSummary{
				Title:         fmt.Sprintf("react hook %d", i),
				Language:      "typescript",
				PublisherID:   "u1",
				PublisherName: "alice",
				CreatedAt:     base.Add(time.Duration(i) * time.Second),
			},
			Code: "useEffect()",
		}))
	}

	svc := search.NewService(store, cache.Nop{}, search.Config{Limits: search.DefaultLimits()})
	mux := http.NewServeMux()
	api.NewServer(svc, store, auth.NewManager(secret, time.Hour), "").RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchPages(t *testing.T) {
	srv := newTestServer(t, 15)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	q := query.Parse("user:alice lang:typescript")
	first, err := c.Search(ctx, core.KindSnippets, q, "", 10)
	require.NoError(t, err)
	assert.Len(t, first.Entries, 10)
	assert.Equal(t, 15, first.Pagination.TotalCount)
	require.True(t, first.Pagination.HasNextPage)
	require.NotNil(t, first.Pagination.NextCursor)

	second, err := c.Search(ctx, core.KindSnippets, q, *first.Pagination.NextCursor, 10)
	require.NoError(t, err)
	assert.Len(t, second.Entries, 5)
	assert.False(t, second.Pagination.HasNextPage)
	assert.Equal(t, "react hook 4", second.Entries[0].Title)
}

func TestGetSnippetNotFound(t *testing.T) {
	srv := newTestServer(t, 1)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.GetSnippet(context.Background(), uuid.Must(uuid.NewV7()).String())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "not found")
}

func TestExportSendsBearerToken(t *testing.T) {
	srv := newTestServer(t, 0)
	ctx := context.Background()

	anonymous, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = anonymous.ExportSnippet(ctx, wire.ExportSnippetRequest{Title: "t", Code: "x", Language: "go"})
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	token, err := auth.NewManager(secret, time.Hour).GenerateToken("u9", "carol")
	require.NoError(t, err)
	c, err := New(Options{BaseURL: srv.URL + "/", Token: token})
	require.NoError(t, err)

	resp, err := c.ExportSnippet(ctx, wire.ExportSnippetRequest{Title: "t", Code: "x", Language: "go"})
	require.NoError(t, err)
	assert.True(t, resp.OK)

	got, err := c.GetSnippet(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.PublisherName)

	snap, err := c.ExportSnapshot(ctx, wire.ExportSnapshotRequest{Title: "s", Extensions: []string{"a.b"}})
	require.NoError(t, err)
	full, err := c.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b"}, full.Extensions)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Search(context.Background(), core.KindSnippets, query.Query{}, "", 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestUserAgentAndFailureEnvelope(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"Failed to fetch Snippets!"}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), core.KindSnippets, query.Query{}, "", 0)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Contains(t, err.Error(), "Failed to fetch Snippets!")
	assert.True(t, strings.HasPrefix(agent, "codesnippets/"))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: ""})
	assert.Error(t, err)
}
