package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string
	PostgresDSN    string
}

// Open builds the store named by opts.Backend and checks that it is reachable.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		log.Info("identity store", zap.String("backend", BackendMemory))
		return NewMemoryStore(), nil

	case BackendRedis:
		cli := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := cli.Ping(ctx).Err(); err != nil {
			_ = cli.Close()
			return nil, fmt.Errorf("identity: redis ping %s: %w", opts.RedisAddr, err)
		}
		log.Info("identity store", zap.String("backend", BackendRedis), zap.String("addr", opts.RedisAddr))
		return NewRedisStore(cli, opts.RedisNamespace), nil

	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, errors.New("identity: postgres backend needs a DSN")
		}
		db, err := gorm.Open(postgres.Open(opts.PostgresDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("identity: open postgres: %w", err)
		}
		st, err := openSQL(db)
		if err != nil {
			return nil, err
		}
		log.Info("identity store", zap.String("backend", BackendPostgres))
		return st, nil

	default:
		return nil, fmt.Errorf("identity: unknown backend %q", opts.Backend)
	}
}

// openSQL builds a store over db and closes db if that fails.
func openSQL(db *gorm.DB) (*SQLStore, error) {
	st, err := NewSQLStore(db)
	if err == nil {
		return st, nil
	}
	err = fmt.Errorf("identity: migrate: %w", err)
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		err = multierr.Append(err, sqlDB.Close())
	}
	return nil, err
}
