package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/codesnippets/pkg/core"
)

// InsertSnippet persists s. A missing ID gets a fresh UUIDv7 and a zero
// CreatedAt is set to now; both are written back to s.
func (s *Store) InsertSnippet(ctx context.Context, sn *core.Snippet) error {
	if err := stamp(&sn.ID, &sn.CreatedAt, &sn.UpdatedAt); err != nil {
		return err
	}
	if sn.Language == "" {
		sn.Language = "text"
	}
	if sn.Tags == nil {
		sn.Tags = []string{}
	}
	tags, err := json.Marshal(sn.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snippets (id, title, description, code, language, tags, publisher_id, publisher_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sn.ID, sn.Title, sn.Description, sn.Code, sn.Language, string(tags),
		sn.PublisherID, sn.PublisherName, sn.CreatedAt.UnixNano(), sn.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting snippet %s: %w", sn.ID, err)
	}
	return nil
}

// InsertSnapshot persists sn, stamping ID and timestamps like InsertSnippet.
func (s *Store) InsertSnapshot(ctx context.Context, sn *core.Snapshot) error {
	if err := stamp(&sn.ID, &sn.CreatedAt, &sn.UpdatedAt); err != nil {
		return err
	}
	if sn.Extensions == nil {
		sn.Extensions = []string{}
	}
	if len(sn.Settings) == 0 {
		sn.Settings = json.RawMessage("{}")
	}
	if len(sn.Keybindings) == 0 {
		sn.Keybindings = json.RawMessage("[]")
	}
	extensions, err := json.Marshal(sn.Extensions)
	if err != nil {
		return fmt.Errorf("encoding extensions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, title, description, settings, extensions, keybindings, publisher_id, publisher_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sn.ID, sn.Title, sn.Description, string(sn.Settings), string(extensions), string(sn.Keybindings),
		sn.PublisherID, sn.PublisherName, sn.CreatedAt.UnixNano(), sn.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting snapshot %s: %w", sn.ID, err)
	}
	return nil
}

// GetSnippet returns the full snippet with the given id.
func (s *Store) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	canonical, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	var (
		sn                   core.Snippet
		tags                 string
		createdAt, updatedAt int64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, title, description, code, language, tags, publisher_id, publisher_name, created_at, updated_at
		FROM snippets WHERE id = ?`, canonical).
		Scan(&sn.ID, &sn.Title, &sn.Description, &sn.Code, &sn.Language, &tags,
			&sn.PublisherID, &sn.PublisherName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snippet %s: %w", canonical, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snippet %s: %w", canonical, err)
	}
	if err := json.Unmarshal([]byte(tags), &sn.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", canonical, err)
	}
	sn.CreatedAt = fromNanos(createdAt)
	sn.UpdatedAt = fromNanos(updatedAt)
	return &sn, nil
}

// GetSnapshot returns the full snapshot with the given id.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	canonical, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	var (
		sn                         core.Snapshot
		settings, ext, keybindings string
		createdAt, updatedAt       int64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, title, description, settings, extensions, keybindings, publisher_id, publisher_name, created_at, updated_at
		FROM snapshots WHERE id = ?`, canonical).
		Scan(&sn.ID, &sn.Title, &sn.Description, &settings, &ext, &keybindings,
			&sn.PublisherID, &sn.PublisherName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", canonical, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", canonical, err)
	}
	if err := json.Unmarshal([]byte(ext), &sn.Extensions); err != nil {
		return nil, fmt.Errorf("decoding extensions of %s: %w", canonical, err)
	}
	sn.Settings = json.RawMessage(settings)
	sn.Keybindings = json.RawMessage(keybindings)
	sn.CreatedAt = fromNanos(createdAt)
	sn.UpdatedAt = fromNanos(updatedAt)
	return &sn, nil
}

// Count returns the number of stored items of kind.
func (s *Store) Count(ctx context.Context, kind core.Kind) (int, error) {
	c, err := CollectionFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.Table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", kind, err)
	}
	return n, nil
}

func stamp(id *string, createdAt, updatedAt *time.Time) error {
	if *id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating id: %w", err)
		}
		*id = v7.String()
	} else {
		canonical, err := canonicalID(*id)
		if err != nil {
			return err
		}
		*id = canonical
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
	*createdAt = createdAt.UTC()
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
	*updatedAt = updatedAt.UTC()
	return nil
}

func canonicalID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: id %q is not a valid identifier", ErrInvalidFilter, id)
	}
	return u.String(), nil
}
