package titles

import (
	"context"
	"log/slog"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/logging"
)

// EventKind classifies a resolution event.
type EventKind string

const (
	EventCacheHit    EventKind = "cache_hit"
	EventCacheMiss   EventKind = "cache_miss"
	EventCacheWrite  EventKind = "cache_write"
	EventFetch       EventKind = "fetch"
	EventFetchFailed EventKind = "fetch_failed"
	EventRowSkipped  EventKind = "row_skipped"
	EventParseFailed EventKind = "parse_failed"
	EventResolved    EventKind = "resolved"
)

// Event is emitted at each step of a lookup or details resolution. Purpose is
// zero for events that do not touch the cache.
type Event struct {
	Kind    EventKind
	Query   string
	Purpose cachestore.Purpose
	URL     string
	// Reason carries the skip reason of a row or the outcome of a resolution.
	Reason string
	Err    error
	Count  int
}

// Observer receives resolution events. Implementations must not block.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// NopObserver discards events.
type NopObserver struct{}

func (NopObserver) Observe(context.Context, Event) {}

// Observers fans an event out to every member in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}

// LogObserver writes events to a structured logger. Failures are logged as
// warnings, everything else at debug level.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logging.NewComponentLogger(logger, "titles")}
}

func (o *LogObserver) Observe(ctx context.Context, ev Event) {
	logger := logging.WithContext(ctx, o.logger)
	attrs := []logging.Attr{logging.String(logging.FieldEventType, string(ev.Kind))}
	if ev.Query != "" && !hasQuery(ctx) {
		attrs = append(attrs, logging.String(logging.FieldQuery, ev.Query))
	}
	if ev.Purpose.Valid() {
		attrs = append(attrs, logging.String(logging.FieldPurpose, ev.Purpose.Label()))
	}
	if ev.URL != "" {
		attrs = append(attrs, logging.String(logging.FieldURL, ev.URL))
	}
	if ev.Reason != "" {
		attrs = append(attrs, logging.String("reason", ev.Reason))
	}
	if ev.Count != 0 {
		attrs = append(attrs, logging.Int("count", ev.Count))
	}

	switch ev.Kind {
	case EventFetchFailed:
		attrs = append(attrs,
			logging.Error(ev.Err),
			logging.String(logging.FieldErrorHint, "check network access and site.base_url"),
			logging.String(logging.FieldImpact, "query could not be resolved"),
		)
		logging.WarnWithContext(logger, "page fetch failed", string(ev.Kind), attrs...)
	case EventParseFailed:
		attrs = append(attrs,
			logging.Error(ev.Err),
			logging.String(logging.FieldErrorHint, "page layout may have changed"),
			logging.String(logging.FieldImpact, "query could not be resolved"),
		)
		logging.WarnWithContext(logger, "page parse failed", string(ev.Kind), attrs...)
	default:
		logger.Debug(eventMessage(ev.Kind), logging.Args(attrs...)...)
	}
}

func hasQuery(ctx context.Context) bool {
	return logging.HasAttrKey(logging.ContextFields(ctx), logging.FieldQuery)
}

func eventMessage(kind EventKind) string {
	switch kind {
	case EventCacheHit:
		return "cache hit"
	case EventCacheMiss:
		return "cache miss"
	case EventCacheWrite:
		return "cache write"
	case EventFetch:
		return "page fetched"
	case EventRowSkipped:
		return "row skipped"
	case EventResolved:
		return "resolved"
	default:
		return string(kind)
	}
}
