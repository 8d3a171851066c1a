package core

import (
	"encoding/json"
	"time"
)

// Item is a list-view row as read from storage by the search pipeline. It
// carries every list field of both kinds plus internal-only fields used for
// pagination. Payload fields (code, settings, extensions, keybindings) are
// never part of an Item.
type Item struct {
	ID            string
	Title         string
	Description   string
	Language      string
	Tags          []string
	PublisherID   string
	PublisherName string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Rank is the text relevance of the row, the number of distinct search
	// terms it contains (higher is better). Only meaningful when Ranked is true.
	Rank   float64
	Ranked bool
}

// SnippetSummary is the public list shape of a snippet.
type SnippetSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Language      string    `json:"language"`
	Tags          []string  `json:"tags"`
	PublisherID   string    `json:"publisherId"`
	PublisherName string    `json:"publisherName"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SnapshotSummary is the public list shape of a snapshot.
type SnapshotSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublisherID   string    `json:"publisherId"`
	PublisherName string    `json:"publisherName"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Snippet is a full snippet including its code payload.
type Snippet struct {
	SnippetSummary
	Code string `json:"code"`
}

// Snapshot is a full editor snapshot including its payloads.
type Snapshot struct {
	SnapshotSummary
	Settings    json.RawMessage `json:"settings"`
	Extensions  []string        `json:"extensions"`
	Keybindings json.RawMessage `json:"keybindings"`
}

// Shape converts a storage row into the public list shape of the given
// kind, dropping internal-only fields.
func (k Kind) Shape(it Item) any {
	publisher := it.PublisherName
	if publisher == "" {
		publisher = "Unknown"
	}
	switch k {
	case KindSnapshots:
		return SnapshotSummary{
			ID:            it.ID,
			Title:         it.Title,
			Description:   it.Description,
			PublisherID:   it.PublisherID,
			PublisherName: publisher,
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		}
	default:
		tags := it.Tags
		if tags == nil {
			tags = []string{}
		}
		return SnippetSummary{
			ID:            it.ID,
			Title:         it.Title,
			Description:   it.Description,
			Language:      it.Language,
			Tags:          tags,
			PublisherID:   it.PublisherID,
			PublisherName: publisher,
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		}
	}
}
