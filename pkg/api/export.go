package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/metrics"
	"github.com/rubiojr/codesnippets/pkg/wire"
)

const (
	MaxSnippetCodeLen   = 10_000
	MaxSnapshotLen      = 100_000
	MaxSnapshotExtCount = 200

	// maxBodyBytes bounds export request bodies before decoding.
	maxBodyBytes = 1 << 20
)

// RequireToken rejects requests without a valid bearer token and stores the
// token claims in the request context.
func (s *Server) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.tokens.FromRequest(r)
		if err != nil {
			logger.Debugf("rejecting %s %s: %v", r.Method, r.URL.Path, err)
			s.writeError(w, http.StatusUnauthorized, "Unauthorized, please log in to upload!")
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

func (s *Server) HandleExportSnippet(w http.ResponseWriter, r *http.Request) {
	var req wire.ExportSnippetRequest
	if !s.decodeExport(w, r, core.KindSnippets, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Language = strings.TrimSpace(req.Language)
	if strings.TrimSpace(req.Code) == "" || req.Title == "" || req.Language == "" {
		s.exportFailed(w, core.KindSnippets, http.StatusBadRequest, "Missing `code` / `title` / `language` in request body!")
		return
	}
	if utf8.RuneCountInString(req.Code) > MaxSnippetCodeLen {
		s.exportFailed(w, core.KindSnippets, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Snippet too large. Max allowed size is %d characters.", MaxSnippetCodeLen))
		return
	}

	claims, _ := auth.ClaimsFrom(r.Context())
	snippet := &core.Snippet{
		SnippetSummary: core.SnippetSummary{
			Title:         req.Title,
			Description:   req.Description,
			Language:      req.Language,
			Tags:          cleanTags(req.Tags),
			PublisherID:   claims.UserID,
			PublisherName: claims.Username,
		},
		Code: req.Code,
	}
	if err := s.store.InsertSnippet(r.Context(), snippet); err != nil {
		logger.Errorf("storing snippet: %v", err)
		s.exportFailed(w, core.KindSnippets, http.StatusInternalServerError, "Upload failed!")
		return
	}

	logger.Infof("snippet %s exported by %s", snippet.ID, claims.Username)
	metrics.RecordExport(core.KindSnippets.String(), strconv.Itoa(http.StatusCreated))
	s.writeJSON(w, http.StatusCreated, wire.ExportResponse{
		OK:      true,
		ID:      snippet.ID,
		URL:     s.itemURL(core.KindSnippets, snippet.ID),
		Message: "Snippet uploaded successfully!",
	})
}

func (s *Server) HandleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	var req wire.ExportSnapshotRequest
	if !s.decodeExport(w, r, core.KindSnapshots, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Extensions) == 0 {
		s.exportFailed(w, core.KindSnapshots, http.StatusBadRequest, "Missing `title` / `extensions` in request body!")
		return
	}
	if len(req.Extensions) > MaxSnapshotExtCount {
		s.exportFailed(w, core.KindSnapshots, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Too many extensions, Max allowed is %d!", MaxSnapshotExtCount))
		return
	}

	settings, keybindings, problem := snapshotPayloads(req.Settings, req.Keybindings)
	if problem != "" {
		s.exportFailed(w, core.KindSnapshots, http.StatusBadRequest, problem)
		return
	}
	if n := snapshotSize(settings, keybindings); n > MaxSnapshotLen {
		s.exportFailed(w, core.KindSnapshots, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Snapshot too large, Max allowed size is %d characters!", MaxSnapshotLen))
		return
	}

	claims, _ := auth.ClaimsFrom(r.Context())
	snapshot := &core.Snapshot{
		SnapshotSummary: core.SnapshotSummary{
			Title:         req.Title,
			Description:   req.Description,
			PublisherID:   claims.UserID,
			PublisherName: claims.Username,
		},
		Settings:    settings,
		Extensions:  req.Extensions,
		Keybindings: keybindings,
	}
	if err := s.store.InsertSnapshot(r.Context(), snapshot); err != nil {
		logger.Errorf("storing snapshot: %v", err)
		s.exportFailed(w, core.KindSnapshots, http.StatusInternalServerError, "Snapshot upload failed!")
		return
	}

	logger.Infof("snapshot %s exported by %s", snapshot.ID, claims.Username)
	metrics.RecordExport(core.KindSnapshots.String(), strconv.Itoa(http.StatusCreated))
	s.writeJSON(w, http.StatusCreated, wire.ExportResponse{
		OK:      true,
		ID:      snapshot.ID,
		URL:     s.itemURL(core.KindSnapshots, snapshot.ID),
		Message: "Snapshot uploaded successfully!",
	})
}

func (s *Server) decodeExport(w http.ResponseWriter, r *http.Request, kind core.Kind, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.exportFailed(w, kind, http.StatusRequestEntityTooLarge, "Request body too large!")
		return false
	}
	s.exportFailed(w, kind, http.StatusBadRequest, "Invalid JSON in request body!")
	return false
}

func (s *Server) exportFailed(w http.ResponseWriter, kind core.Kind, status int, message string) {
	metrics.RecordExport(kind.String(), strconv.Itoa(status))
	s.writeError(w, status, message)
}

func (s *Server) itemURL(kind core.Kind, id string) string {
	return strings.TrimSuffix(s.publicURL, "/") + "/" + kind.String() + "/" + id
}

// snapshotPayloads applies defaults and checks the JSON shape of the
// snapshot payloads: settings is an object, keybindings an array. A
// non-empty problem is the message returned to the client.
func snapshotPayloads(settings, keybindings json.RawMessage) (_, _ json.RawMessage, problem string) {
	if isNull(settings) {
		settings = json.RawMessage("{}")
	}
	if isNull(keybindings) {
		keybindings = json.RawMessage("[]")
	}
	if first(settings) != '{' {
		return nil, nil, "`settings` must be a JSON object!"
	}
	if first(keybindings) != '[' {
		return nil, nil, "`keybindings` must be a JSON array!"
	}
	return settings, keybindings, ""
}

// snapshotSize measures settings and keybindings the way clients do: the
// character length of {"settings":...,"keybindings":...} compactly encoded.
func snapshotSize(settings, keybindings json.RawMessage) int {
	var buf bytes.Buffer
	buf.WriteString(`{"settings":`)
	if err := json.Compact(&buf, settings); err != nil {
		buf.Write(settings)
	}
	buf.WriteString(`,"keybindings":`)
	if err := json.Compact(&buf, keybindings); err != nil {
		buf.Write(keybindings)
	}
	buf.WriteByte('}')
	return utf8.RuneCount(buf.Bytes())
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func first(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
