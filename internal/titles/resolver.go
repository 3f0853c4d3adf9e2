package titles

import (
	"context"
	"errors"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/fetch"
	"moviemeta/internal/services"
)

const component = "titles"

// Cache is the subset of cachestore.Store used by the resolvers.
type Cache interface {
	Exists(ctx context.Context, query string, purpose cachestore.Purpose) (bool, error)
	Read(ctx context.Context, query string, purpose cachestore.Purpose) ([]byte, error)
	// Write reports whether this call created the entry.
	Write(ctx context.Context, query string, purpose cachestore.Purpose, data []byte) (bool, error)
}

var _ Cache = (*cachestore.Store)(nil)

// Resolver answers title lookups and details requests, consulting the cache
// before the remote site.
type Resolver struct {
	cache    Cache
	fetcher  fetch.Fetcher
	site     fetch.Site
	observer Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObserver replaces the default no-op observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewResolver wires a resolver over cache and fetcher. URLs are built from site.
func NewResolver(cache Cache, fetcher fetch.Fetcher, site fetch.Site, opts ...Option) *Resolver {
	r := &Resolver{
		cache:    cache,
		fetcher:  fetcher,
		site:     site,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Resolver) emit(ctx context.Context, ev Event) {
	r.observer.Observe(ctx, ev)
}

// cached reports whether an entry exists and emits a hit or miss event.
func (r *Resolver) cached(ctx context.Context, query string, purpose cachestore.Purpose) (bool, error) {
	ok, err := r.cache.Exists(ctx, query, purpose)
	if err != nil {
		return false, err
	}
	kind := EventCacheMiss
	if ok {
		kind = EventCacheHit
	}
	r.emit(ctx, Event{Kind: kind, Query: query, Purpose: purpose})
	return ok, nil
}

// read loads an entry. A concurrent flush between Exists and Read surfaces
// as not found, which callers report as a miss.
func (r *Resolver) read(ctx context.Context, query string, purpose cachestore.Purpose) ([]byte, bool, error) {
	data, err := r.cache.Read(ctx, query, purpose)
	if errors.Is(err, services.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Resolver) write(ctx context.Context, query string, purpose cachestore.Purpose, data []byte) error {
	created, err := r.cache.Write(ctx, query, purpose, data)
	if err != nil {
		return err
	}
	if created {
		r.emit(ctx, Event{Kind: EventCacheWrite, Query: query, Purpose: purpose, Count: len(data)})
	}
	return nil
}

func (r *Resolver) fetch(ctx context.Context, query, url string) (string, error) {
	page, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.emit(ctx, Event{Kind: EventFetchFailed, Query: query, URL: url, Err: err})
		if !errors.Is(err, services.ErrFetch) {
			err = services.Wrap(services.ErrFetch, component, "fetch", url, err)
		}
		return "", err
	}
	r.emit(ctx, Event{Kind: EventFetch, Query: query, URL: url, Count: len(page)})
	return page, nil
}

func (r *Resolver) parseFailure(ctx context.Context, query, url, operation, message string) error {
	err := services.Wrap(services.ErrParse, component, operation, message, nil)
	r.emit(ctx, Event{Kind: EventParseFailed, Query: query, URL: url, Err: err})
	return err
}
