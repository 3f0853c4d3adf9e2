package metrics_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/metrics"
	"moviemeta/internal/services"
	"moviemeta/internal/titles"
)

func TestObserverCountsEvents(t *testing.T) {
	obs := metrics.New()
	ctx := context.Background()
	events := []titles.Event{
		{Kind: titles.EventCacheMiss, Purpose: cachestore.PurposeNoMatch},
		{Kind: titles.EventCacheMiss, Purpose: cachestore.PurposeTitlePage},
		{Kind: titles.EventCacheHit, Purpose: cachestore.PurposeHitList},
		{Kind: titles.EventFetch},
		{Kind: titles.EventFetchFailed, Err: services.Wrap(services.ErrFetch, "fetch", "", "", errors.New("x"))},
		{Kind: titles.EventRowSkipped, Reason: "tv"},
		{Kind: titles.EventRowSkipped, Reason: "tv"},
		{Kind: titles.EventResolved, Reason: "candidates"},
	}
	for _, ev := range events {
		obs.Observe(ctx, ev)
	}

	expected := `
# HELP moviemeta_rows_skipped_total Search result rows dropped by reason.
# TYPE moviemeta_rows_skipped_total counter
moviemeta_rows_skipped_total{reason="tv"} 2
`
	if err := testutil.GatherAndCompare(obs.Registry(), strings.NewReader(expected), "moviemeta_rows_skipped_total"); err != nil {
		t.Fatalf("rows skipped: %v", err)
	}

	expected = `
# HELP moviemeta_fetch_total Page fetches by result.
# TYPE moviemeta_fetch_total counter
moviemeta_fetch_total{result="error"} 1
moviemeta_fetch_total{result="ok"} 1
`
	if err := testutil.GatherAndCompare(obs.Registry(), strings.NewReader(expected), "moviemeta_fetch_total"); err != nil {
		t.Fatalf("fetches: %v", err)
	}

	expected = `
# HELP moviemeta_resolutions_total Completed resolutions by outcome, and failures by error kind.
# TYPE moviemeta_resolutions_total counter
moviemeta_resolutions_total{outcome="candidates"} 1
moviemeta_resolutions_total{outcome="fetch"} 1
`
	if err := testutil.GatherAndCompare(obs.Registry(), strings.NewReader(expected), "moviemeta_resolutions_total"); err != nil {
		t.Fatalf("resolutions: %v", err)
	}

	if n := testutil.CollectAndCount(obs.Registry(), "moviemeta_cache_events_total"); n != 3 {
		t.Fatalf("expected 3 cache event series, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	obs := metrics.New()
	obs.Observe(context.Background(), titles.Event{Kind: titles.EventFetch})

	path := filepath.Join(t.TempDir(), "textfile", "moviemeta.prom")
	if err := obs.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `moviemeta_fetch_total{result="ok"} 1`) {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
	if err := obs.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
