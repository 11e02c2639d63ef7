package main

import (
	"context"
	"fmt"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/config"
	"github.com/ledgerline/backoffice/internal/storage"
)

// openStorage loads the configuration and opens a migrated store. The open
// is retried because a concurrently running pass can hold the SQLite write
// lock briefly.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var store *storage.SQLiteStorage
	err = common.WithRetry(ctx, func() error {
		var openErr error
		store, openErr = storage.NewSQLiteStorage(cfg.Database.Path)
		if openErr != nil {
			return &common.RetryableError{Err: openErr, Retryable: true}
		}
		return nil
	}, common.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return nil, nil, common.NewUserError("could not open database", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	return store, cfg, nil
}
