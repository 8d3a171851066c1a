package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/rubiojr/codesnippets/pkg/version"
	"github.com/rubiojr/codesnippets/pkg/wire"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (s *Server) HandleSearchSnippets(w http.ResponseWriter, r *http.Request) {
	s.handleSearch(w, r, core.KindSnippets)
}

func (s *Server) HandleSearchSnapshots(w http.ResponseWriter, r *http.Request) {
	s.handleSearch(w, r, core.KindSnapshots)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	params := s.search.ParseParams(kind, r.URL.Query())

	res, err := s.search.Search(r.Context(), params)
	if errors.Is(err, storage.ErrInvalidFilter) {
		s.writeRaw(w, http.StatusBadRequest, search.FailurePayload(err.Error()))
		return
	}
	if err != nil {
		logger.Errorf("search %s failed: %v", kind, err)
		s.writeRaw(w, http.StatusInternalServerError,
			search.FailurePayload(fmt.Sprintf("Failed to fetch %s!", kind.Label())))
		return
	}

	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	s.writeRaw(w, http.StatusOK, res.Payload)
}

func (s *Server) HandleImportSnippet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snippet, err := s.store.GetSnippet(r.Context(), id)
	if status, msg, failed := s.lookupFailure(core.KindSnippets, id, err); failed {
		s.writeError(w, status, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.SnippetResponse{OK: true, Snippet: snippet})
}

func (s *Server) HandleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snapshot, err := s.store.GetSnapshot(r.Context(), id)
	if status, msg, failed := s.lookupFailure(core.KindSnapshots, id, err); failed {
		s.writeError(w, status, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.SnapshotResponse{OK: true, Snapshot: snapshot})
}

// lookupFailure maps a by-id lookup error to a status and message.
func (s *Server) lookupFailure(kind core.Kind, id string, err error) (int, string, bool) {
	// a Caser is stateful, so one is built per call
	name := cases.Title(language.English).String(kind.Singular())
	switch {
	case err == nil:
		return 0, "", false
	case id == "":
		return http.StatusBadRequest, fmt.Sprintf("Missing `id` of %s!", name), true
	case errors.Is(err, storage.ErrInvalidFilter):
		return http.StatusBadRequest, fmt.Sprintf("Invalid %s ID: %s", kind.Singular(), id), true
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("%s not found with the ID: %s!", name, id), true
	}
	logger.Errorf("loading %s %s: %v", kind.Singular(), id, err)
	return http.StatusInternalServerError, "Fetch failed", true
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, wire.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	})
}
