package cachestore

import "context"

// Backend persists encoded entries. Implementations never overwrite an
// existing entry; PutIfAbsent reports whether the entry was created.
type Backend interface {
	Name() string
	Has(ctx context.Context, key EntryKey) (bool, error)
	// Get returns ok=false when the entry does not exist.
	Get(ctx context.Context, key EntryKey) (data []byte, ok bool, err error)
	PutIfAbsent(ctx context.Context, key EntryKey, data []byte) (bool, error)
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	// Count returns the number of entries per purpose.
	Count(ctx context.Context) (map[Purpose]int, error)
	Close() error
}
