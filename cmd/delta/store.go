package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deltaLens/internal/config"
	"deltaLens/internal/storage"
	"deltaLens/internal/storage/bolt"
	"deltaLens/internal/storage/postgres"
)

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		logger.Debug("using file store", zap.String("path", cfg.StorePath))
		return storage.NewFileStore(cfg.StorePath), nil
	case config.StoreBolt:
		logger.Debug("using bolt store", zap.String("path", cfg.StorePath))
		store, err := bolt.NewStore(cfg.StorePath, nil)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorePostgres:
		logger.Debug("using postgres store", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
