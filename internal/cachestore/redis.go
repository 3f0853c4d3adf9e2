package cachestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisScanBatch = 256

// RedisOptions configures the redis backend.
type RedisOptions struct {
	// Client cannot be nil.
	Client redis.Cmdable
	// Closer closes Client when the backend is closed. Optional.
	Closer io.Closer
	// Prefix namespaces every key as <prefix>:<label>:<hash>.
	Prefix string
}

// RedisBackend stores entries as plain redis strings without expiry.
type RedisBackend struct {
	client redis.Cmdable
	closer io.Closer
	prefix string
}

// NewRedisBackend wraps an existing redis client.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	if opts.Client == nil {
		return nil, errors.New("nil redis client")
	}
	return &RedisBackend{
		client: opts.Client,
		closer: opts.Closer,
		prefix: strings.Trim(opts.Prefix, ":"),
	}, nil
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(k EntryKey) string {
	return b.namespace() + k.Purpose.Label() + ":" + k.Hash
}

func (b *RedisBackend) namespace() string {
	if b.prefix == "" {
		return ""
	}
	return b.prefix + ":"
}

func (b *RedisBackend) Has(ctx context.Context, key EntryKey) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (b *RedisBackend) Get(ctx context.Context, key EntryKey) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return data, true, nil
}

func (b *RedisBackend) PutIfAbsent(ctx context.Context, key EntryKey, data []byte) (bool, error) {
	created, err := b.client.SetNX(ctx, b.key(key), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return created, nil
}

func (b *RedisBackend) Clear(ctx context.Context) (int, error) {
	removed := 0
	for _, p := range Purposes() {
		err := b.scan(ctx, b.namespace()+p.Label()+":*", func(keys []string) error {
			n, err := b.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis del failed: %w", err)
			}
			removed += int(n)
			return nil
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (b *RedisBackend) Count(ctx context.Context) (map[Purpose]int, error) {
	counts := make(map[Purpose]int, len(Purposes()))
	for _, p := range Purposes() {
		err := b.scan(ctx, b.namespace()+p.Label()+":*", func(keys []string) error {
			counts[p] += len(keys)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func (b *RedisBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *RedisBackend) scan(ctx context.Context, match string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, match, redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
