package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/wire"
	"github.com/urfave/cli/v3"
)

// languages maps file extensions to the language names used for snippets.
var languages = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".sh":   "shell",
	".sql":  "sql",
	".html": "html",
	".css":  "css",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".md":   "markdown",
}

// ExportCommand creates the export command
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Upload a snippet or snapshot",
		Commands: []*cli.Command{
			{
				Name:      "snippet",
				Usage:     "Upload the code in FILE (or stdin) as a snippet",
				ArgsUsage: "[FILE]",
				Flags: append(clientFlags(),
					&cli.StringFlag{Name: "title", Usage: "Snippet title (defaults to the file name)"},
					&cli.StringFlag{Name: "description", Usage: "Snippet description"},
					&cli.StringFlag{Name: "language", Aliases: []string{"lang"}, Usage: "Language (guessed from the file extension)"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag, may be repeated or comma separated"},
				),
				Action: exportSnippet,
			},
			{
				Name:      "snapshot",
				Usage:     "Upload a snapshot JSON file (settings, extensions, keybindings)",
				ArgsUsage: "FILE",
				Flags: append(clientFlags(),
					&cli.StringFlag{Name: "title", Usage: "Snapshot title (overrides the file)"},
					&cli.StringFlag{Name: "description", Usage: "Snapshot description (overrides the file)"},
				),
				Action: exportSnapshot,
			},
		},
	}
}

func exportSnippet(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()

	var code []byte
	var err error
	if path == "" || path == "-" {
		code, err = io.ReadAll(os.Stdin)
	} else {
		code, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading snippet: %w", err)
	}

	req := wire.ExportSnippetRequest{
		Title:       c.String("title"),
		Description: c.String("description"),
		Code:        string(code),
		Language:    c.String("language"),
		Tags:        splitTags(c.StringSlice("tag")),
	}
	if req.Title == "" && path != "" && path != "-" {
		req.Title = filepath.Base(path)
	}
	if req.Language == "" {
		req.Language = languages[strings.ToLower(filepath.Ext(path))]
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cl, err := newClient(c, cfg)
	if err != nil {
		return err
	}

	resp, err := cl.ExportSnippet(ctx, req)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	printExport(resp)
	return nil
}

func exportSnapshot(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing snapshot file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var req wire.ExportSnapshotRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if v := c.String("title"); v != "" {
		req.Title = v
	}
	if v := c.String("description"); v != "" {
		req.Description = v
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cl, err := newClient(c, cfg)
	if err != nil {
		return err
	}

	resp, err := cl.ExportSnapshot(ctx, req)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	printExport(resp)
	return nil
}

func printExport(resp *wire.ExportResponse) {
	fmt.Println(resp.Message)
	fmt.Printf("  id:  %s\n", resp.ID)
	if resp.URL != "" {
		fmt.Printf("  url: %s\n", urlStyle.Render(resp.URL))
	}
}
