package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run integrity checks on the database",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quick",
						Usage: "Skip deep FTS5-specific integrity checks",
						Value: false,
					},
				},
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					return checkDatabase(ctx, s, !c.Bool("quick"))
				}),
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild the FTS5 text indexes",
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					return runStep(ctx, "FTS rebuild", s.RebuildFTS)
				}),
			},
			{
				Name:  "analyze",
				Usage: "Run ANALYZE to update query planner statistics",
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					return runStep(ctx, "ANALYZE", s.Analyze)
				}),
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment the database",
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					fmt.Println("This may take a while for large databases...")
					return runStep(ctx, "VACUUM", s.Vacuum)
				}),
			},
			{
				Name:  "checkpoint",
				Usage: "Run WAL checkpoint to flush changes",
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					return runStep(ctx, "WAL checkpoint", s.WALCheckpoint)
				}),
			},
			{
				Name:  "all",
				Usage: "Run all optimization operations (optimize, analyze, checkpoint)",
				Action: withStore(func(ctx context.Context, c *cli.Command, s *storage.Store) error {
					return optimizeAll(ctx, s)
				}),
			},
		},
	}
}

func withStore(fn func(context.Context, *cli.Command, *storage.Store) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		store, err := storage.Open(ctx, cfg.DBPath())
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(ctx, c, store)
	}
}

func runStep(ctx context.Context, name string, fn func(context.Context) error) error {
	fmt.Printf("Running %s...\n", name)
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("✓ %s completed\n", name)
	return nil
}

// optimizeAll runs all optimization operations
func optimizeAll(ctx context.Context, s *storage.Store) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"PRAGMA optimize", s.Optimize},
		{"ANALYZE", s.Analyze},
		{"WAL checkpoint", s.WALCheckpoint},
	}
	for _, step := range steps {
		if err := runStep(ctx, step.name, step.fn); err != nil {
			return err
		}
	}
	fmt.Println()
	fmt.Println("All optimization operations completed successfully")
	return nil
}

// checkDatabase runs integrity checks and fails when problems are found
func checkDatabase(ctx context.Context, s *storage.Store, deepFTS bool) error {
	fmt.Println("Checking database integrity...")
	problems, err := s.CheckIntegrity(ctx, deepFTS)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		return fmt.Errorf("integrity check found %d problems: %s", len(problems), strings.Join(problems, "; "))
	}
	fmt.Println("✓ Database is healthy")
	return nil
}
