package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/wire"
)

var logger = log.ForService("api")

// ItemStore persists and loads full items. *storage.Store implements it.
type ItemStore interface {
	InsertSnippet(ctx context.Context, s *core.Snippet) error
	InsertSnapshot(ctx context.Context, s *core.Snapshot) error
	GetSnippet(ctx context.Context, id string) (*core.Snippet, error)
	GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error)
}

type Server struct {
	search *search.Service
	store  ItemStore
	tokens *auth.Manager
	// publicURL prefixes the item URLs returned by the export endpoints.
	publicURL string
}

func NewServer(svc *search.Service, store ItemStore, tokens *auth.Manager, publicURL string) *Server {
	return &Server{
		search:    svc,
		store:     store,
		tokens:    tokens,
		publicURL: publicURL,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

// writeRaw writes an already encoded JSON payload.
func (s *Server) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(payload); err != nil {
		logger.Warnf("writing response: %v", err)
	}
}

// writeError writes the {ok:false, message} shape used by the item endpoints.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, wire.StatusResponse{OK: false, Message: message})
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Cache")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
