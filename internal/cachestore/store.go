package cachestore

import (
	"context"
	"log/slog"

	"moviemeta/internal/logging"
	"moviemeta/internal/services"
)

const component = "cachestore"

// Stats summarizes the contents of a store.
type Stats struct {
	Backend  string
	Location string
	Codec    string
	Enabled  bool
	Entries  map[Purpose]int
}

// Total returns the number of entries across all purposes.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Entries {
		total += n
	}
	return total
}

// Store is the purpose-tagged, compressed cache consulted by the resolvers.
// Entries are write-once: a second Write for the same key leaves the first
// payload in place.
//
// A disabled store never hits and never persists, but Flush and Stats still
// reach the backend so operators can inspect or clear leftovers.
type Store struct {
	backend Backend
	codec   Codec
	enabled bool
	logger  *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger attaches a logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, component)
	}
}

// WithEnabled toggles the cache switch. Stores are enabled by default.
func WithEnabled(enabled bool) Option {
	return func(s *Store) {
		s.enabled = enabled
	}
}

// New builds a store on top of backend. A nil codec selects gzip.
func New(backend Backend, codec Codec, opts ...Option) *Store {
	if codec == nil {
		codec = GzipCodec{}
	}
	s := &Store{
		backend: backend,
		codec:   codec,
		enabled: true,
		logger:  logging.NewComponentLogger(nil, component),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Enabled reports the cache switch.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// Exists reports whether an entry for query under purpose is stored.
func (s *Store) Exists(ctx context.Context, query string, purpose Purpose) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	key := Key(query, purpose)
	ok, err := s.backend.Has(ctx, key)
	if err != nil {
		return false, services.Wrap(services.ErrCache, component, "exists", purpose.Label(), err)
	}
	return ok, nil
}

// Read returns the decoded payload. A missing entry yields an error matching
// services.ErrNotFound.
func (s *Store) Read(ctx context.Context, query string, purpose Purpose) ([]byte, error) {
	if !s.Enabled() {
		return nil, services.Wrap(services.ErrNotFound, component, "read", "cache disabled", nil)
	}
	key := Key(query, purpose)
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, component, "read", purpose.Label(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, component, "read", purpose.Label(), nil)
	}
	data, err := s.codec.Decode(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, component, "decode", purpose.Label(), err)
	}
	return data, nil
}

// Write stores data when no entry exists yet. It returns true only when this
// call created the entry; an existing entry is left as is and yields false.
// A disabled store returns false without error.
func (s *Store) Write(ctx context.Context, query string, purpose Purpose, data []byte) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	key := Key(query, purpose)
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return false, services.Wrap(services.ErrCache, component, "encode", purpose.Label(), err)
	}
	created, err := s.backend.PutIfAbsent(ctx, key, encoded)
	if err != nil {
		return false, services.Wrap(services.ErrCache, component, "write", purpose.Label(), err)
	}
	s.logger.Debug("cache entry stored",
		logging.String(logging.FieldPurpose, purpose.Label()),
		logging.String("key", key.Hash),
		logging.Bool("created", created),
		logging.Int("bytes", len(encoded)),
	)
	return created, nil
}

// Flush deletes every entry and returns how many were removed.
func (s *Store) Flush(ctx context.Context) (int, error) {
	n, err := s.backend.Clear(ctx)
	if err != nil {
		return n, services.Wrap(services.ErrCache, component, "flush", "", err)
	}
	s.logger.Info("cache flushed", logging.Int("removed", n), logging.String("backend", s.backend.Name()))
	return n, nil
}

// Stats counts entries per purpose.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.backend.Count(ctx)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrCache, component, "stats", "", err)
	}
	return Stats{
		Backend:  s.backend.Name(),
		Location: location(s.backend),
		Codec:    s.codec.Name(),
		Enabled:  s.enabled,
		Entries:  counts,
	}, nil
}

// location describes where a backend keeps its entries, when it has one.
func location(b Backend) string {
	switch backend := b.(type) {
	case *FileBackend:
		return backend.Dir()
	case *SQLiteBackend:
		return backend.Path()
	case *RedisBackend:
		return backend.namespace() + "*"
	default:
		return ""
	}
}

// Close releases backend resources.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
