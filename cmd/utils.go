package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/client"
	"github.com/rubiojr/codesnippets/pkg/config"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/urfave/cli/v3"
)

// loadConfig loads the file named by the root --config flag and applies the
// configured log level. --debug always wins over the file.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyLogLevel(c, cfg)
	return cfg, nil
}

func applyLogLevel(c *cli.Command, cfg *config.Config) {
	if c.Bool("debug") {
		log.SetGlobalDebug(true)
		return
	}
	log.SetLevel(cfg.Level())
}

// newClient builds an API client from the [client] section, letting the
// --api-url and --token flags override it when present.
func newClient(c *cli.Command, cfg *config.Config) (*client.Client, error) {
	opts := client.Options{
		BaseURL: cfg.Client.BaseURL,
		Token:   cfg.Client.Token,
		Timeout: cfg.Client.Timeout.Duration,
	}
	if v := c.String("api-url"); v != "" {
		opts.BaseURL = v
	}
	if v := c.String("token"); v != "" {
		opts.Token = v
	}
	return client.New(opts)
}

// clientFlags are shared by every command talking to the API.
func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "API base URL (overrides client.base_url)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Bearer token for exports (overrides client.token)",
		},
	}
}

func kindArg(c *cli.Command, idx int) (core.Kind, error) {
	raw := c.Args().Get(idx)
	if raw == "" {
		return "", fmt.Errorf("missing kind argument (snippets or snapshots)")
	}
	return core.ParseKind(raw)
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func splitTags(raw []string) []string {
	var tags []string
	for _, r := range raw {
		for _, t := range strings.Split(r, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
