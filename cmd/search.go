package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/browse"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search snippets or snapshots and import the selection",
		ArgsUsage: "[query...]",
		Description: `Filters can be mixed with free text:

   codesnippets search react fetch user:alice lang:ts tag:hooks
   codesnippets search --kind snapshots id:0190c4f2-...`,
		Flags: append(clientFlags(),
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "snippets or snapshots",
				Value:   string(core.KindSnippets),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page (0 uses client.page_size, then the server default)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the imported item to this file instead of stdout",
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			kind, err := core.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}
			cl, err := newClient(c, cfg)
			if err != nil {
				return err
			}

			limit := c.Int("limit")
			if limit == 0 {
				limit = cfg.Client.PageSize
			}

			prompter := newTerminalPrompter(os.Stdin, os.Stderr)
			loop := browse.New(cl, prompter, limit)
			out, err := loop.Run(ctx, kind, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return err
			}

			switch out.State {
			case browse.StateSelected:
				return importItem(ctx, cl, kind, out.ID, c.String("output"))
			case browse.StateFailed:
				return fmt.Errorf("search failed: %w", out.Err)
			}
			return nil
		},
	}
}
