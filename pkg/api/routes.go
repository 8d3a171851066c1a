package api

import (
	"net/http"

	"github.com/rubiojr/codesnippets/pkg/metrics"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/snippets/getAll", s.HandleSearchSnippets)
	mux.HandleFunc("GET /api/snapshots/getAll", s.HandleSearchSnapshots)
	mux.HandleFunc("GET /api/snippets/import/{id}", s.HandleImportSnippet)
	mux.HandleFunc("GET /api/snapshots/import/{id}", s.HandleImportSnapshot)
	mux.HandleFunc("POST /api/snippets/export", s.RequireToken(s.HandleExportSnippet))
	mux.HandleFunc("POST /api/snapshots/export", s.RequireToken(s.HandleExportSnapshot))
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}
