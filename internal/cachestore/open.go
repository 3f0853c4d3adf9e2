package cachestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"moviemeta/internal/config"
	"moviemeta/internal/services"
)

// Open builds the store selected by cfg.Cache.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfig, component, "open", "nil config", nil)
	}
	codec, err := CodecByName(cfg.Cache.Codec)
	if err != nil {
		return nil, services.Wrap(services.ErrConfig, component, "open", "", err)
	}
	backend, err := openBackend(ctx, cfg, codec)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, component, "open", cfg.Cache.Backend, err)
	}
	return New(backend, codec, WithLogger(logger), WithEnabled(cfg.Cache.Enabled)), nil
}

func openBackend(ctx context.Context, cfg *config.Config, codec Codec) (Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile, "":
		return NewFileBackend(cfg.Cache.Dir, codec.Extension())
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.Cache.SQLitePath)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisBackend(RedisOptions{Client: client, Closer: client, Prefix: cfg.Redis.Prefix})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
