package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/rubiojr/codesnippets/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	mux    *http.ServeMux
	store  *storage.Store
	tokens *auth.Manager
}

func setupTestAPIServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 9, 27, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		lang := "go"
		if i%3 == 0 {
			lang = "python"
		}
		require.NoError(t, store.InsertSnippet(ctx, &core.Snippet{
			SnippetSummary: core.SnippetSummary{
				Title:         fmt.Sprintf("snippet %d", i),
				Language:      lang,
				Tags:          []string{"misc"},
				PublisherID:   "u1",
				PublisherName: "alice",
				CreatedAt:     base.Add(time.Duration(i) * time.Second),
			},
			Code: "print()",
		}))
	}
	require.NoError(t, store.InsertSnapshot(ctx, &core.Snapshot{
		SnapshotSummary: core.SnapshotSummary{Title: "dark setup", PublisherID: "u1", PublisherName: "alice"},
		Extensions:      []string{"golang.go"},
	}))

	tokens := auth.NewManager(testSecret, time.Hour)
	svc := search.NewService(store, cache.NewMemory(cache.Options{}), search.Config{Limits: search.DefaultLimits()})
	server := NewServer(svc, store, tokens, "https://example.com/")

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return &testEnv{mux: mux, store: store, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken("u42", "bob")
	require.NoError(t, err)
	return tok
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestSearchCacheHeaders(t *testing.T) {
	env := setupTestAPIServer(t)

	first := env.do(t, "GET", "/api/snippets/getAll?limit=5", "", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", first.Header().Get("Content-Type"))

	second := env.do(t, "GET", "/api/snippets/getAll?limit=5", "", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	body := decodeBody(t, first)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["snippets"], 5)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(12), pagination["totalCount"])
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNextPage"])
	assert.NotEmpty(t, pagination["nextCursor"])
}

func TestSearchLanguageAlias(t *testing.T) {
	env := setupTestAPIServer(t)

	for _, q := range []string{"language=python", "lang=python"} {
		rec := env.do(t, "GET", "/api/snippets/getAll?"+q, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Len(t, body["snippets"], 4, q)
	}
}

func TestSearchSnapshots(t *testing.T) {
	env := setupTestAPIServer(t)

	rec := env.do(t, "GET", "/api/snapshots/getAll?language=go", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["snapshots"], 1, "language is ignored for snapshots")
	assert.NotContains(t, body, "snippets")
}

func TestSearchInvalidID(t *testing.T) {
	env := setupTestAPIServer(t)

	rec := env.do(t, "GET", "/api/snippets/getAll?id=nope", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "not a valid identifier")
	assert.NotContains(t, body, "snippets")
}

type brokenStore struct{}

func (brokenStore) Search(context.Context, *storage.Pipeline) ([]core.Item, int, error) {
	return nil, 0, errors.New("disk I/O error")
}

func TestSearchStorageFailure(t *testing.T) {
	svc := search.NewService(brokenStore{}, nil, search.Config{})
	mux := http.NewServeMux()
	NewServer(svc, nil, auth.NewManager(testSecret, 0), "").RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/snapshots/getAll", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to fetch Snapshots!"}`, rec.Body.String())
}

func TestImportSnippet(t *testing.T) {
	env := setupTestAPIServer(t)

	list := decodeBody(t, env.do(t, "GET", "/api/snippets/getAll?limit=1", "", ""))
	id := list["snippets"].([]any)[0].(map[string]any)["id"].(string)

	rec := env.do(t, "GET", "/api/snippets/import/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp wire.SnippetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Snippet)
	assert.Equal(t, "print()", resp.Snippet.Code)

	rec = env.do(t, "GET", "/api/snippets/import/"+uuid.Must(uuid.NewV7()).String(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Snippet not found")

	rec = env.do(t, "GET", "/api/snippets/import/12345", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["ok"])
}

func TestExportRequiresToken(t *testing.T) {
	env := setupTestAPIServer(t)
	body := `{"title":"t","code":"x","language":"go"}`

	rec := env.do(t, "POST", "/api/snippets/export", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := auth.NewManager("other", time.Hour).GenerateToken("u1", "eve")
	require.NoError(t, err)
	rec = env.do(t, "POST", "/api/snippets/export", body, other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExportSnippet(t *testing.T) {
	env := setupTestAPIServer(t)
	token := env.token(t)

	rec := env.do(t, "POST", "/api/snippets/export",
		`{"title":" http server ","code":"package main","language":"go","tags":["web"," web ",""]}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp wire.ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "https://example.com/snippets/"+resp.ID, resp.URL)

	got, err := env.store.GetSnippet(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "http server", got.Title)
	assert.Equal(t, []string{"web"}, got.Tags)
	assert.Equal(t, "bob", got.PublisherName)
	assert.Equal(t, "u42", got.PublisherID)
}

func TestExportSnippetValidation(t *testing.T) {
	env := setupTestAPIServer(t)
	token := env.token(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{"title":`, http.StatusBadRequest},
		{"missing code", `{"title":"t","language":"go"}`, http.StatusBadRequest},
		{"blank title", `{"title":"  ","code":"x","language":"go"}`, http.StatusBadRequest},
		{"missing language", `{"title":"t","code":"x"}`, http.StatusBadRequest},
		{"code too large", `{"title":"t","language":"go","code":"` + strings.Repeat("a", MaxSnippetCodeLen+1) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/snippets/export", tt.body, token)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, decodeBody(t, rec)["ok"])
		})
	}

	// exactly at the limit is accepted
	rec := env.do(t, "POST", "/api/snippets/export",
		`{"title":"t","language":"go","code":"`+strings.Repeat("é", MaxSnippetCodeLen)+`"}`, token)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestExportSnapshot(t *testing.T) {
	env := setupTestAPIServer(t)
	token := env.token(t)

	rec := env.do(t, "POST", "/api/snapshots/export",
		`{"title":"light","settings":{"editor.tabSize":2},"extensions":["a.b"],"keybindings":[{"key":"ctrl+k"}]}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp wire.ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = env.do(t, "GET", "/api/snapshots/import/"+resp.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got wire.SnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Snapshot)
	assert.JSONEq(t, `{"editor.tabSize":2}`, string(got.Snapshot.Settings))
	assert.JSONEq(t, `[{"key":"ctrl+k"}]`, string(got.Snapshot.Keybindings))
	assert.Equal(t, "bob", got.Snapshot.PublisherName)
}

func TestExportSnapshotValidation(t *testing.T) {
	env := setupTestAPIServer(t)
	token := env.token(t)

	tooMany := make([]string, MaxSnapshotExtCount+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("pub.ext%d", i)
	}
	manyJSON, err := json.Marshal(tooMany)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing title", `{"extensions":["a.b"]}`, http.StatusBadRequest},
		{"no extensions", `{"title":"t","extensions":[]}`, http.StatusBadRequest},
		{"too many extensions", `{"title":"t","extensions":` + string(manyJSON) + `}`, http.StatusRequestEntityTooLarge},
		{"settings not an object", `{"title":"t","extensions":["a.b"],"settings":[1]}`, http.StatusBadRequest},
		{"keybindings not an array", `{"title":"t","extensions":["a.b"],"keybindings":{}}`, http.StatusBadRequest},
		{"too large", `{"title":"t","extensions":["a.b"],"settings":{"k":"` + strings.Repeat("x", MaxSnapshotLen) + `"}}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/snapshots/export", tt.body, token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSnapshotSize(t *testing.T) {
	n := snapshotSize([]byte(`{ "a" : 1 }`), []byte(`[]`))
	assert.Equal(t, len(`{"settings":{"a":1},"keybindings":[]}`), n)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestAPIServer(t)

	rec := env.do(t, "GET", "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	env.do(t, "GET", "/api/snippets/getAll", "", "")
	rec = env.do(t, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "codesnippets_search_total")
}

func TestCorsMiddleware(t *testing.T) {
	env := setupTestAPIServer(t)
	handler := CorsMiddleware(env.mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/snippets/export", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}
