package main

import (
	"fmt"

	"go.uber.org/zap"
)

// NewBookStorage connects to the configured storage driver and provides the
// matching book storage. Postgres schema migrations run first when enabled.
func NewBookStorage(logger *zap.Logger, config *Config) (BookStorage, error) {
	switch config.Storage.Driver {
	case StoragePostgres:
		pool, err := GetPostgresPool(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		if config.Postgres.AutoMigrate {
			if err = MigratePostgres(pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
			}
			logger.Info("postgres schema migrated")
		}
		return NewPostgresBookStorage(logger, &config.Postgres, pool), nil

	case StorageBolt:
		client, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb file: %w", err)
		}
		return NewBoltBookStorage(logger, &config.BoltDB, client), nil

	case StorageRedis:
		client, err := GetRedisClient(config)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		return NewRedisBookStorage(logger, client), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, config.Storage.Driver)
}
