package cachestore

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisKeyLayout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	backend, err := NewRedisBackend(RedisOptions{Client: client, Prefix: "moviemeta:"})
	if err != nil {
		t.Fatalf("NewRedisBackend: %v", err)
	}
	key := Key("Heat", PurposeTitlePage)
	if got := backend.key(key); got != "moviemeta:title:"+key.Hash {
		t.Fatalf("key = %q", got)
	}

	bare, err := NewRedisBackend(RedisOptions{Client: client})
	if err != nil {
		t.Fatalf("NewRedisBackend: %v", err)
	}
	if got := bare.key(key); got != "title:"+key.Hash {
		t.Fatalf("bare key = %q", got)
	}
	if got := location(backend); got != "moviemeta:*" {
		t.Fatalf("location = %q", got)
	}
}

func TestRedisBackendRequiresClient(t *testing.T) {
	if _, err := NewRedisBackend(RedisOptions{}); err == nil {
		t.Fatal("expected error for nil client")
	}
}
