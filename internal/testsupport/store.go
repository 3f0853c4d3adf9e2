package testsupport

import (
	"context"
	"testing"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/config"
)

// MustOpenStore opens the store configured by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *cachestore.Store {
	t.Helper()

	store, err := cachestore.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("cachestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewMemoryStore returns an enabled in-memory store.
func NewMemoryStore(opts ...cachestore.Option) *cachestore.Store {
	return cachestore.New(cachestore.NewMemoryBackend(), nil, opts...)
}
