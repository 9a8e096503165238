package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/config"
	"github.com/Veraticus/the-data-must-flow/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the run database at dbPath and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// historyStorage opens the configured run database for commands that only
// read history.
func historyStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		return nil, common.NewUserError("run history is disabled; set database.path or pass --db", common.ErrMissingConfig)
	}
	return initStorage(ctx, dbPath)
}

func closeStore(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
