package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediq/patient-queue/internal/config"
	"github.com/mediq/patient-queue/internal/pkg/postgres"
	pkgredis "github.com/mediq/patient-queue/internal/pkg/redis"
	"github.com/mediq/patient-queue/internal/queue"
	"github.com/mediq/patient-queue/internal/queue/memory"
	queuepostgres "github.com/mediq/patient-queue/internal/queue/postgres"
	queueredis "github.com/mediq/patient-queue/internal/queue/redis"
	goredis "github.com/redis/go-redis/v9"
)

// openRepository returns the configured queue store. The pool is nil for
// the memory driver.
func openRepository(ctx context.Context, cfg *config.Config) (queue.Repository, *pgxpool.Pool, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		return memory.NewRepository(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return queuepostgres.NewRepository(db), db, nil
}

// openCache returns the statistics cache, or nil when Redis is disabled.
func openCache(ctx context.Context, cfg config.RedisConfig) (queue.StatsCache, *goredis.Client, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	client, err := pkgredis.Connect(ctx, pkgredis.Config{
		URL:             cfg.URL,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	return queueredis.NewCache(client, cfg.KeyPrefix, cfg.TTL), client, nil
}
