package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show storage statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := storage.Open(ctx, cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			formatStats(os.Stdout, stats, time.Now())
			return nil
		},
	}
}

// formatStats writes storage statistics for display
func formatStats(w io.Writer, stats []storage.KindStats, now time.Time) {
	total := 0
	for _, st := range stats {
		total += st.Count
	}

	fmt.Fprintln(w, titleStyle.Render("Storage Statistics"))
	fmt.Fprintln(w)
	printer.Fprintf(w, "Total items: %d (%s)\n\n", total, formatNumber(total))

	for i, st := range stats {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, itemTitleStyle.Render(st.Kind.Label()))

		printer.Fprintf(w, "   Items:  %d", st.Count)
		if total > 0 {
			fmt.Fprintf(w, " (%.1f%%)", float64(st.Count)/float64(total)*100)
		}
		fmt.Fprintln(w)

		if st.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "   Oldest: %s\n", formatRelative(st.Oldest, now))
		fmt.Fprintf(w, "   Newest: %s\n", formatRelative(st.Newest, now))
		fmt.Fprintf(w, "   Span:   %s\n", formatDuration(st.Newest.Sub(st.Oldest)))
	}
}
