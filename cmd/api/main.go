package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/config"
	"github.com/books-catalog/cmd/api/logging"
	"github.com/books-catalog/cmd/api/notifications"
)

// CLI is the command line of the catalog service.
type CLI struct {
	Config string `short:"c" help:"Path to a YAML config file" type:"path" env:"CATALOG_CONFIG"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API (default)"`
	Migrate MigrateCmd `cmd:"" help:"Apply the database migrations and exit"`
	Seed    SeedCmd    `cmd:"" help:"Store randomly generated sample books and exit"`
}

type ServeCmd struct{}

func (s *ServeCmd) Run(cfg *config.Config) error {
	ctx := context.Background()

	repo, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	return serve(cfg.Server, newService(cfg, repo))
}

type MigrateCmd struct{}

func (m *MigrateCmd) Run(cfg *config.Config) error {
	dbCfg := cfg.Database
	if dbCfg.Driver == driverMemory {
		slog.Info("in-memory store needs no migrations")
		return nil
	}
	// falling back would hide that the real database was never migrated
	dbCfg.FallbackToMemory = false

	_, closeStore, err := openStore(context.Background(), dbCfg)
	if err != nil {
		return err
	}
	closeStore()

	slog.Info("migrations applied", "driver", dbCfg.Driver)
	return nil
}

type SeedCmd struct {
	Count int `short:"n" help:"How many sample books to store (1-100)" default:"10"`
}

func (s *SeedCmd) Run(cfg *config.Config) error {
	ctx := context.Background()

	repo, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	msg, err := newService(cfg, repo).GenerateSampleBooks(ctx, s.Count)
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Println(msg)
	return nil
}

/* Builds the book service over the store, with the ISBN source and notifier from config. */
func newService(cfg *config.Config, repo book.Repository) *book.Service {
	seed := cfg.ISBN.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := book.NewLockedRand(rand.New(rand.NewSource(seed)))

	ntfy := notifications.NewNtfy(cfg.Notifications.Enabled, cfg.Notifications.Timeout, cfg.Notifications.BaseURL)
	return book.NewService(repo, ntfy, rnd)
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("catalog"),
		kong.Description("A books catalog service."),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		slog.Error("building command line", "error", err)
		os.Exit(1)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format); err != nil {
		slog.Error("setting up logging", "error", err)
		os.Exit(1)
	}

	if err := ctx.Run(cfg); err != nil {
		slog.Error("command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
