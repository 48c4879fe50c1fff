package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/logging"
	"github.com/portfolio/backend/internal/repository"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Path to the YAML config file." env:"CONFIG_PATH" default:"config.yaml"`
	Driver string `help:"Override the configured store driver (mongo, postgres, bolt)."`
}

// CLI is the top-level command structure for migrate.
type CLI struct {
	Globals

	Apply ApplyCmd `cmd:"" default:"1" help:"Create the contact collection or table, validator and indexes (idempotent)."`
	Reset ResetCmd `cmd:"" help:"Drop all contact storage, then recreate it."`
}

// ApplyCmd brings the store schema up to date.
type ApplyCmd struct{}

// ResetCmd drops and recreates the store schema.
type ResetCmd struct {
	Yes bool `help:"Do not ask for confirmation." short:"y"`
}

func (c *ApplyCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, cfg, err := openStore(ctx, g)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.Migrator.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	slog.Info("schema is up to date", "driver", cfg.Store.Driver)
	return nil
}

func (c *ResetCmd) Run(g *Globals) error {
	if !c.Yes {
		return fmt.Errorf("reset drops every stored contact message; rerun with --yes to confirm")
	}
	ctx := context.Background()
	store, cfg, err := openStore(ctx, g)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.Migrator.Drop(ctx); err != nil {
		return fmt.Errorf("reset: drop: %w", err)
	}
	slog.Info("dropped contact storage", "driver", cfg.Store.Driver)
	if err := store.Migrator.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("reset: apply: %w", err)
	}
	slog.Info("schema recreated", "driver", cfg.Store.Driver)
	return nil
}

func openStore(ctx context.Context, g *Globals) (*repository.Store, *config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.Driver != "" {
		cfg.Store.Driver = strings.ToLower(g.Driver)
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := repository.Open(ctx, cfg.Store.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Store.Driver, err)
	}
	return store, cfg, nil
}

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Prepare the contact message store."),
		kong.UsageOnError(),
	)
	if err := kctx.Run(&cli.Globals); err != nil {
		logging.Fatal("migrate failed", "error", err)
	}
}
