package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/codesnippets/pkg/api"
	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/browse"
	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/client"
	"github.com/rubiojr/codesnippets/pkg/config"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(n int) []client.Entry {
	out := make([]client.Entry, n)
	for i := range out {
		out[i] = client.Entry{ID: fmt.Sprintf("id-%d", i+1), Title: fmt.Sprintf("entry %d", i+1)}
	}
	return out
}

func TestTerminalPrompterChoose(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPrompter(strings.NewReader("x\n9\nm\n2\n"), &out)
	ctx := context.Background()
	view := browse.View{Kind: core.KindSnippets, Query: "react", Entries: entries(3), TotalCount: 4, CanLoadMore: true}

	choice, err := p.Choose(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, browse.ActionLoadMore, choice.Action)
	assert.Contains(t, out.String(), "Enter a number between 1 and 3")

	choice, err = p.Choose(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, browse.Choice{Action: browse.ActionSelect, ID: "id-2"}, choice)
}

func TestTerminalPrompterNoMoreResults(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPrompter(strings.NewReader("m\nq\n"), &out)

	choice, err := p.Choose(context.Background(), browse.View{Kind: core.KindSnippets, Entries: entries(1)})
	require.NoError(t, err)
	assert.Equal(t, browse.ActionCancel, choice.Action)
	assert.Contains(t, out.String(), "No more results")
}

func TestTerminalPrompterEOF(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader(""), &bytes.Buffer{})
	ctx := context.Background()

	_, ok, err := p.AskQuery(ctx, core.KindSnippets)
	require.NoError(t, err)
	assert.False(t, ok)

	choice, err := p.Choose(ctx, browse.View{Entries: entries(2)})
	require.NoError(t, err)
	assert.Equal(t, browse.ActionCancel, choice.Action)

	p = newTerminalPrompter(strings.NewReader("react hooks"), &bytes.Buffer{})
	raw, ok, err := p.AskQuery(ctx, core.KindSnippets)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "react hooks", raw)
}

func TestRenderView(t *testing.T) {
	created := time.Date(2024, 9, 27, 12, 0, 0, 0, time.UTC)
	v := browse.View{
		Kind:  core.KindSnippets,
		Query: "react",
		Entries: []client.Entry{
			{ID: "a", Title: "fetch hook", Language: "typescript", Tags: []string{"react", "hooks"}, PublisherName: "alice", CreatedAt: created},
			{ID: "b"},
		},
		TotalCount:  1234,
		CanLoadMore: true,
	}

	got := renderView(v)
	assert.Contains(t, got, `Snippets matching "react" (2 of 1,234)`)
	assert.Contains(t, got, "fetch hook")
	assert.Contains(t, got, "[typescript]")
	assert.Contains(t, got, "#react #hooks")
	assert.Contains(t, got, "By: alice")
	assert.Contains(t, got, "Untitled")
	assert.Contains(t, got, "m to load more")

	v.CanLoadMore = false
	assert.NotContains(t, renderView(v), "load more")
}

func TestSnippetHeader(t *testing.T) {
	s := &core.Snippet{SnippetSummary: core.SnippetSummary{
		ID:            "0190c4f2-0000-7000-8000-000000000001",
		Title:         "debounce",
		Language:      "go",
		PublisherName: "alice",
	}}
	got := snippetHeader(s)
	assert.True(t, strings.HasPrefix(got, "/* ----- Snippet: 'debounce' (id: 0190c4f2-0000-7000-8000-000000000001) -----\n"))
	assert.Contains(t, got, "* Language: go\n")
	assert.Contains(t, got, "* Publisher-Name: alice\n")
	assert.Contains(t, got, "* Created On: unknown\n")
	assert.True(t, strings.HasSuffix(got, "*/\n"))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTags([]string{"a, b", " c ", ","}))
	assert.Nil(t, splitTags(nil))
}

type fixture struct {
	client   *client.Client
	snippets []string
	snapshot string
}

func newFixture(t *testing.T, n int) fixture {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var f fixture
	base := time.Date(2024, 9, 27, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		sn := &core.Snippet{
			SnippetSummary: core.SnippetSummary{
				Title:         fmt.Sprintf("go snippet %d", i),
				Language:      "go",
				PublisherID:   "u1",
				PublisherName: "alice",
				CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			},
			Code: fmt.Sprintf("fmt.Println(%d)", i),
		}
		require.NoError(t, store.InsertSnippet(ctx, sn))
		f.snippets = append(f.snippets, sn.ID)
	}

	snap := &core.Snapshot{
		SnapshotSummary: core.SnapshotSummary{Title: "my setup", PublisherID: "u1", PublisherName: "alice"},
		Settings:        json.RawMessage(`{"editor.fontSize":14,"editor.tabSize":2}`),
		Extensions:      []string{"golang.go"},
		Keybindings:     json.RawMessage(`[]`),
	}
	require.NoError(t, store.InsertSnapshot(ctx, snap))
	f.snapshot = snap.ID

	svc := search.NewService(store, cache.NewMemory(cache.Options{}), search.Config{Limits: search.DefaultLimits()})
	mux := http.NewServeMux()
	api.NewServer(svc, store, auth.NewManager("cmd-secret", time.Hour), "").RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f.client, err = client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return f
}

func TestImportItemSnippet(t *testing.T) {
	f := newFixture(t, 1)
	path := filepath.Join(t.TempDir(), "out.go")

	require.NoError(t, importItem(context.Background(), f.client, core.KindSnippets, f.snippets[0], path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "/* ----- Snippet: 'go snippet 0'"))
	assert.True(t, strings.HasSuffix(string(data), "*/\nfmt.Println(0)\n"))
}

func TestImportItemSnapshot(t *testing.T) {
	f := newFixture(t, 0)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	require.NoError(t, importItem(context.Background(), f.client, core.KindSnapshots, f.snapshot, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got core.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "my setup", got.Title)
	assert.Equal(t, []string{"golang.go"}, got.Extensions)
	assert.JSONEq(t, `{"editor.fontSize":14,"editor.tabSize":2}`, string(got.Settings))
}

func TestImportItemNotFound(t *testing.T) {
	f := newFixture(t, 0)
	err := importItem(context.Background(), f.client, core.KindSnippets, "0190c4f2-0000-7000-8000-000000000001", "")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
}

func TestSearchLoopOverTerminal(t *testing.T) {
	f := newFixture(t, 5)
	var out bytes.Buffer
	// page of 2, load more once, then pick the third entry
	p := newTerminalPrompter(strings.NewReader("m\n3\n"), &out)

	outcome, err := browse.New(f.client, p, 2).Run(context.Background(), core.KindSnippets, "lang:go user:alice")
	require.NoError(t, err)
	require.Equal(t, browse.StateSelected, outcome.State)
	assert.Equal(t, 5, outcome.TotalCount)
	assert.Len(t, outcome.Entries, 4)
	// newest first
	assert.Equal(t, f.snippets[2], outcome.ID)
	assert.Contains(t, out.String(), "(2 of 5)")
	assert.Contains(t, out.String(), "(4 of 5)")
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, initConfig(path, false))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "codesnippets"), cfg.StorageDir)

	assert.Error(t, initConfig(path, false))
	assert.NoError(t, initConfig(path, true))
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store", "codesnippets.db")

	require.NoError(t, RunMigrations(ctx, path, true))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, RunMigrations(ctx, path, false))
	assert.FileExists(t, path)
	require.NoError(t, RunMigrations(ctx, path, true))

	store, err := storage.Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count(ctx, core.KindSnippets)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReloadConfiguration(t *testing.T) {
	prev := log.CurrentLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	svc := search.NewService(nil, nil, search.Config{})
	cfg := &config.Config{
		LogLevel: "warn",
		Search:   config.SearchConfig{DefaultLimit: 5, MinLimit: 1, MaxLimit: 50},
	}

	reloadConfiguration(svc, cfg, false)
	assert.Equal(t, search.Limits{Default: 5, Min: 1, Max: 50}, svc.Limits())
	assert.Equal(t, log.LevelWarn, log.CurrentLevel())

	log.SetLevel(log.LevelDebug)
	cfg.LogLevel = "error"
	reloadConfiguration(svc, cfg, true)
	assert.Equal(t, log.LevelDebug, log.CurrentLevel())
}

func TestFormatStats(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	stats := []storage.KindStats{
		{Kind: core.KindSnippets, Count: 1500, Oldest: now.Add(-72 * time.Hour), Newest: now.Add(-30 * time.Minute)},
		{Kind: core.KindSnapshots},
	}

	var out bytes.Buffer
	formatStats(&out, stats, now)
	got := out.String()

	assert.Contains(t, got, "Total items: 1,500 (1.5K)")
	assert.Contains(t, got, "Items:  1,500 (100.0%)")
	assert.Contains(t, got, "Oldest: 3 days ago")
	assert.Contains(t, got, "Newest: 30 minutes ago")
	assert.Contains(t, got, "Span:   3.0 days")
	assert.Contains(t, got, "Snapshots")
	assert.Contains(t, got, "Items:  0 (0.0%)")
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", formatRelative(now.Add(-10*time.Second), now))
	assert.Equal(t, "5 hours ago", formatRelative(now.Add(-5*time.Hour), now))
	assert.Equal(t, "Sep 1, 12:00", formatRelative(now.AddDate(0, -1, 0), now))
	assert.Equal(t, "Oct 1, 2023", formatRelative(now.AddDate(-1, 0, 0), now))
}

func TestCheckDatabase(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "check.db"))
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, checkDatabase(ctx, store, true))
	assert.NoError(t, optimizeAll(ctx, store))
}
