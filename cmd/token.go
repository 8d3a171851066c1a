package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/urfave/cli/v3"
)

// TokenCommand creates the token command
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a development export token signed with auth.jwt_secret",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user-id",
				Usage:    "Publisher id stored with exported items",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "username",
				Usage:    "Publisher name shown in search results",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime (defaults to auth.token_ttl)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ttl := cfg.Auth.TokenTTL.Duration
			if v := c.Duration("ttl"); v > 0 {
				ttl = v
			}

			token, err := auth.NewManager(cfg.Auth.JWTSecret, ttl).GenerateToken(c.String("user-id"), c.String("username"))
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Println(token)
			return nil
		},
	}
}
