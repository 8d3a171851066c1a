package main

import (
	"context"
	"log"
	"os"

	"github.com/rubiojr/codesnippets/cmd"
	"github.com/rubiojr/codesnippets/pkg/config"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "codesnippets",
		Usage: "Share, search and import code snippets and editor snapshots",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file",
				Value: ".env",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, config.LoadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ServeCommand(),
			cmd.SearchCommand(),
			cmd.ImportCommand(),
			cmd.ExportCommand(),
			cmd.TokenCommand(),
			cmd.StatsCommand(),
			cmd.OptimizeCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
