package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
)

// KindStats summarizes the stored items of one kind.
type KindStats struct {
	Kind   core.Kind
	Count  int
	Oldest time.Time
	Newest time.Time
}

// Stats returns per-kind item counts and creation time bounds.
func (s *Store) Stats(ctx context.Context) ([]KindStats, error) {
	stats := make([]KindStats, 0, len(core.Kinds))
	for _, kind := range core.Kinds {
		c, err := CollectionFor(kind)
		if err != nil {
			return nil, err
		}

		var oldest, newest sql.NullInt64
		st := KindStats{Kind: kind}
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM "+c.Table,
		).Scan(&st.Count, &oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("collecting %s stats: %w", kind, err)
		}
		if oldest.Valid {
			st.Oldest = fromNanos(oldest.Int64)
		}
		if newest.Valid {
			st.Newest = fromNanos(newest.Int64)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func (s *Store) Optimize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA optimize")
	return err
}

func (s *Store) Analyze(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "ANALYZE")
	return err
}

func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *Store) WALCheckpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// RebuildFTS rebuilds the text index of every kind from its content table.
func (s *Store) RebuildFTS(ctx context.Context) error {
	for _, kind := range core.Kinds {
		c, err := CollectionFor(kind)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", c.FTSTable, c.FTSTable)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuilding %s: %w", c.FTSTable, err)
		}
	}
	return nil
}

// CheckIntegrity runs SQLite's integrity check and, when deepFTS is set, the
// FTS5 integrity check of every text index. It returns the problems found;
// an empty result means the database is healthy.
func (s *Store) CheckIntegrity(ctx context.Context, deepFTS bool) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, fmt.Errorf("running integrity check: %w", err)
	}
	defer closeRows(rows)

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !deepFTS {
		return problems, nil
	}
	for _, kind := range core.Kinds {
		c, err := CollectionFor(kind)
		if err != nil {
			return nil, err
		}
		stmt := fmt.Sprintf("INSERT INTO %s(%s) VALUES('integrity-check')", c.FTSTable, c.FTSTable)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", c.FTSTable, err))
		}
	}
	return problems, nil
}
