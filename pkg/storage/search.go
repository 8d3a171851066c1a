package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Search runs both statements of p concurrently and returns the page rows
// (up to Limit+1, the extra one being the lookahead) and the total count.
func (s *Store) Search(ctx context.Context, p *Pipeline) ([]core.Item, int, error) {
	var (
		items []core.Item
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.queryItems(gctx, p)
		return err
	})
	g.Go(func() error {
		if err := s.db.QueryRowContext(gctx, p.CountSQL, p.CountArgs...).Scan(&total); err != nil {
			return fmt.Errorf("counting %s: %w", p.Kind, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	logger.Debugf("search %s returned %d rows of %d total", p.Kind, len(items), total)
	return items, total, nil
}

func (s *Store) queryItems(ctx context.Context, p *Pipeline) ([]core.Item, error) {
	rows, err := s.db.QueryContext(ctx, p.ItemsSQL, p.ItemsArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.Kind, err)
	}
	defer closeRows(rows)

	items := make([]core.Item, 0, p.Limit+1)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", p.Kind, err)
		}
		it.Ranked = p.Ranked
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", p.Kind, err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (core.Item, error) {
	var (
		it                   core.Item
		tags                 string
		createdAt, updatedAt int64
	)
	if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Language, &tags,
		&it.PublisherID, &it.PublisherName, &createdAt, &updatedAt, &it.Rank); err != nil {
		return it, err
	}
	if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
		return it, fmt.Errorf("decoding tags of %s: %w", it.ID, err)
	}
	it.CreatedAt = fromNanos(createdAt)
	it.UpdatedAt = fromNanos(updatedAt)
	return it, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
