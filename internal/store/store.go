// Package store opens the posting store backend selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/mongo"
	pgstore "github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/postgres"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/sqlite"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/postgres"
)

// Open returns the backend named by cfg.Storage.Backend. The caller owns the
// returned store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (index.Store, error) {
	log := slog.Default().With("component", "store", "backend", cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		if cfg.Memory.SnapshotPath == "" {
			log.Info("using in-memory store")
			return memory.New(), nil
		}
		s, err := memory.Open(cfg.Memory.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("opening memory snapshot: %w", err)
		}
		log.Info("using in-memory store", "snapshot", cfg.Memory.SnapshotPath)
		return s, nil

	case config.BackendPostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s, err := pgstore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		log.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return s, nil

	case config.BackendMongo:
		s, err := mongo.Open(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mongo", "database", cfg.Mongo.Database)
		return s, nil

	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Info("opened sqlite store", "path", cfg.SQLite.Path)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
