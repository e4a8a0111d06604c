package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Open creates the store selected by cfg.Storage.Backend
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		return NewMemoryStore(), nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return OpenSQLite(cfg.Storage.SQLitePath, log)

	case config.BackendPostgres:
		db, err := database.New(ctx, &cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(cfg.Storage.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db, log), nil

	case config.BackendRedis:
		return OpenRedis(ctx, &redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		}, cfg.Storage.Redis.KeyPrefix, log)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
