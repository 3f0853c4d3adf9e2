package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"moviemeta/internal/services"
	"moviemeta/internal/titles"
)

const namespace = "moviemeta"

// Observer counts resolution events. Each Observer owns its registry so
// independent instances never collide.
type Observer struct {
	registry    *prometheus.Registry
	cacheEvents *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

var _ titles.Observer = (*Observer)(nil)

func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Cache hits, misses and writes by purpose.",
			},
			[]string{"event", "purpose"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Page fetches by result.",
			},
			[]string{"result"},
		),
		rowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_skipped_total",
				Help:      "Search result rows dropped by reason.",
			},
			[]string{"reason"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Completed resolutions by outcome, and failures by error kind.",
			},
			[]string{"outcome"},
		),
	}
	o.registry.MustRegister(o.cacheEvents, o.fetches, o.rowsSkipped, o.resolutions)
	return o
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

func (o *Observer) Observe(_ context.Context, ev titles.Event) {
	switch ev.Kind {
	case titles.EventCacheHit, titles.EventCacheMiss, titles.EventCacheWrite:
		o.cacheEvents.WithLabelValues(string(ev.Kind), ev.Purpose.Label()).Inc()
	case titles.EventFetch:
		o.fetches.WithLabelValues("ok").Inc()
	case titles.EventFetchFailed:
		o.fetches.WithLabelValues("error").Inc()
		o.resolutions.WithLabelValues(services.Kind(ev.Err)).Inc()
	case titles.EventRowSkipped:
		o.rowsSkipped.WithLabelValues(ev.Reason).Inc()
	case titles.EventParseFailed:
		o.resolutions.WithLabelValues(services.Kind(ev.Err)).Inc()
	case titles.EventResolved:
		o.resolutions.WithLabelValues(ev.Reason).Inc()
	}
}

// WriteTextfile writes the current values in the node exporter textfile
// format. The write is atomic.
func (o *Observer) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
