package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rubiojr/codesnippets/pkg/config"
	"github.com/urfave/cli/v3"
)

// InitCommand creates the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize configuration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return initConfig(c.String("config"), c.Bool("force"))
		},
	}
}

// initConfig writes the annotated configuration template to configPath
func initConfig(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
	}

	cfg, err := config.GetDefaultConfig()
	if err != nil {
		return err
	}
	if err := cfg.SaveTemplateConfig(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration initialized at %s\n", configPath)
	return nil
}
