package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rubiojr/codesnippets/pkg/api"
	"github.com/rubiojr/codesnippets/pkg/auth"
	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/config"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/search"
	"github.com/rubiojr/codesnippets/pkg/storage"
	"github.com/urfave/cli/v3"
)

var serveLog = log.ForService("serve")

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides server.listen)",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Do not reload the configuration file when it changes",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("listen"); v != "" {
				cfg.Server.Listen = v
			}
			watchPath := c.String("config")
			if c.Bool("no-watch") {
				watchPath = ""
			}
			return serve(ctx, cfg, watchPath, c.Bool("debug"))
		},
	}
}

// serve runs the API until SIGINT or SIGTERM. When watchPath is set, changes
// to that file hot-reload the search limits and the log level.
func serve(ctx context.Context, cfg *config.Config, watchPath string, debug bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	store, err := storage.Open(ctx, cfg.DBPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			serveLog.Warnf("failed to close database: %v", err)
		}
	}()

	searchCache, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		return fmt.Errorf("creating search cache: %w", err)
	}
	defer func() {
		if err := searchCache.Close(); err != nil {
			serveLog.Warnf("failed to close search cache: %v", err)
		}
	}()

	svc := search.NewService(store, searchCache, search.Config{
		CachePrefix: cfg.Cache.Prefix,
		Limits:      cfg.SearchLimits(),
	})

	if cfg.Auth.JWTSecret == "" {
		serveLog.Warnf("auth.jwt_secret is empty, export endpoints will reject every request")
	}
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)

	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://" + cfg.Server.Listen
	}
	server := api.NewServer(svc, store, tokens, publicURL)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      api.CorsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	if watchPath != "" {
		go func() {
			err := config.Watch(ctx, watchPath, config.DefaultDebounce, func(newCfg *config.Config) {
				reloadConfiguration(svc, newCfg, debug)
			})
			if err != nil {
				serveLog.Warnf("config hot reload disabled: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		serveLog.Infof("listening on %s (cache: %s)", cfg.Server.Listen, cfg.Cache.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	serveLog.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// reloadConfiguration applies the settings that can change without a
// restart. Listen address, storage and cache backend changes need one.
func reloadConfiguration(svc *search.Service, cfg *config.Config, debug bool) {
	limits := cfg.SearchLimits()
	if limits != svc.Limits() {
		serveLog.Infof("search limits changed: default=%d min=%d max=%d", limits.Default, limits.Min, limits.Max)
		svc.SetLimits(limits)
	}
	if !debug && cfg.Level() != log.CurrentLevel() {
		serveLog.Infof("log level changed to %s", cfg.Level())
		log.SetLevel(cfg.Level())
	}
}
