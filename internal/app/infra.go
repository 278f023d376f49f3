package app

import (
	"context"
	"errors"

	"account-service/internal/config"
	"account-service/internal/db"
	"account-service/internal/logger"
	"account-service/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.Database.DSN); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	logger.Info("database ready", nil)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("redis ready", map[string]any{"addr": cfg.Redis.Addr})

	return &Infra{
		DB:    database,
		Redis: redisClient,
	}, nil
}

func migrateUp(dsn string) error {
	m, err := db.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := m.Up(); err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", map[string]any{"version": version, "dirty": dirty})
	return nil
}

// Close releases Redis and Postgres, reporting both failures.
func (i *Infra) Close() error {
	return errors.Join(i.Redis.Close(), i.DB.Close())
}
