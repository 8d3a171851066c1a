// Package wire holds the JSON shapes exchanged between the API server and
// its clients. It depends on nothing but pkg/core so clients can decode
// responses without building the server side.
package wire

import (
	"encoding/json"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
)

// Pagination is the pagination block of a search envelope.
type Pagination struct {
	TotalCount  int     `json:"totalCount"`
	Limit       int     `json:"limit"`
	TotalPages  int     `json:"totalPages"`
	HasNextPage bool    `json:"hasNextPage"`
	NextCursor  *string `json:"nextCursor"`
}

// StatusResponse is the failure shape of the item endpoints.
type StatusResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type SnippetResponse struct {
	OK      bool          `json:"ok"`
	Snippet *core.Snippet `json:"snippet,omitempty"`
	Message string        `json:"message,omitempty"`
}

type SnapshotResponse struct {
	OK       bool           `json:"ok"`
	Snapshot *core.Snapshot `json:"snapshot,omitempty"`
	Message  string         `json:"message,omitempty"`
}

type ExportSnippetRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
}

type ExportSnapshotRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Settings    json.RawMessage `json:"settings"`
	Extensions  []string        `json:"extensions"`
	Keybindings json.RawMessage `json:"keybindings"`
}

type ExportResponse struct {
	OK      bool   `json:"ok"`
	ID      string `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
