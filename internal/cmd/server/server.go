// Package server parses diary service flags and launches the service.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	otelapi "go.opentelemetry.io/otel"

	"github.com/clinarc/ediary/internal/platform/config"
	"github.com/clinarc/ediary/internal/platform/otel"
	"github.com/clinarc/ediary/internal/services/diary/app"
	"github.com/clinarc/ediary/internal/services/diary/seed"
	"github.com/clinarc/ediary/internal/services/diary/storage/sqlite"
)

// Config holds diary server command configuration.
type Config struct {
	HTTPAddr      string `env:"EDIARY_HTTP_ADDR" envDefault:":8080"`
	DBPath        string `env:"EDIARY_DB_PATH"`
	SuperAdminKey string `env:"EDIARY_ADMIN_API_KEY"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "ediary.db")
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The diary HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the SQLite database file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run bootstraps storage and serves the diary HTTP API until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "ediary-server")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	bootCtx, span := otelapi.Tracer("ediary/server").Start(ctx, "bootstrap")
	store, created, err := sqlite.Open(bootCtx, cfg.DBPath)
	if err != nil {
		span.End()
		return fmt.Errorf("open diary store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close diary store: %v", err)
		}
	}()

	if created {
		if err := seed.Load(bootCtx, store); err != nil {
			span.End()
			return fmt.Errorf("load seed questionnaire: %w", err)
		}
		log.Printf("seeded demo questionnaire into fresh database")
	}
	span.End()
	if cfg.SuperAdminKey == "" {
		log.Printf("no super-admin key configured; only project admin keys are accepted")
	}

	server, err := app.NewServer(app.Config{
		HTTPAddr:      cfg.HTTPAddr,
		SuperAdminKey: cfg.SuperAdminKey,
		Store:         store,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	log.Printf("diary server listening at %s", cfg.HTTPAddr)
	return server.ListenAndServe(ctx)
}
