package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/config"
	"github.com/books-catalog/cmd/api/database"
	"github.com/books-catalog/cmd/api/inmemory"
	"github.com/books-catalog/cmd/api/sqlite"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	connectTimeout = 5 * time.Second
)

/* Opens the configured store and applies its migrations. The returned func releases it. */
func openStore(ctx context.Context, cfg config.DatabaseConfig) (book.Repository, func(), error) {
	switch cfg.Driver {
	case driverPostgres:
		repo, closeStore, err := openPostgres(ctx, cfg.URL)
		if err == nil {
			return repo, closeStore, nil
		}
		if !cfg.FallbackToMemory {
			return nil, nil, err
		}
		slog.Warn("postgres unavailable, falling back to the in-memory store", "error", err)
		return openMemory()

	case driverSQLite:
		return openSQLite(ctx, cfg.SQLitePath)

	case driverMemory, "":
		return openMemory()

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, url string) (book.Repository, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dbObject, err := database.ConnectDb(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting with db: %w", err)
	}

	store := database.NewStore(dbObject)
	if err := database.MigrationUp(store); err != nil {
		dbObject.Close()
		return nil, nil, fmt.Errorf("migrating: %w", err)
	}

	return store, func() { dbObject.Close() }, nil
}

func openSQLite(ctx context.Context, path string) (book.Repository, func(), error) {
	dbObject, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sqlite: %w", err)
	}

	store := sqlite.NewStore(dbObject)
	if err := sqlite.MigrationUp(store); err != nil {
		dbObject.Close()
		return nil, nil, fmt.Errorf("migrating: %w", err)
	}

	return store, func() { dbObject.Close() }, nil
}

func openMemory() (book.Repository, func(), error) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using the in-memory store, books are lost on restart")
	return store, func() {}, nil
}
