package cachestore

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory. Entries vanish on exit.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[EntryKey][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[EntryKey][]byte)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Has(_ context.Context, key EntryKey) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[key]
	return ok, nil
}

func (b *MemoryBackend) Get(_ context.Context, key EntryKey) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (b *MemoryBackend) PutIfAbsent(_ context.Context, key EntryKey, data []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; ok {
		return false, nil
	}
	b.entries[key] = append([]byte(nil), data...)
	return true, nil
}

func (b *MemoryBackend) Clear(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = make(map[EntryKey][]byte)
	return n, nil
}

func (b *MemoryBackend) Count(context.Context) (map[Purpose]int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[Purpose]int, len(Purposes()))
	for key := range b.entries {
		counts[key.Purpose]++
	}
	return counts, nil
}

func (b *MemoryBackend) Close() error { return nil }
