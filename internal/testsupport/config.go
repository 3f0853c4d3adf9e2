package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"moviemeta/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The politeness interval is disabled so tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Site.BaseURL = "http://127.0.0.1:0"
	cfgVal.Fetch.MinIntervalMillis = 0
	cfgVal.Cache.Dir = filepath.Join(base, "cache", "pages")
	cfgVal.Cache.SQLitePath = filepath.Join(base, "cache", "cache.db")
	cfgVal.Logging.Dir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the site at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Site.BaseURL = url
	}
}

// WithCacheBackend selects the cache backend by name.
func WithCacheBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = name
	}
}

// WithCacheDisabled turns the cache switch off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithMetricsTextfile enables the metrics textfile under the temp dir and
// returns its path through dst.
func WithMetricsTextfile(dst *string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, "metrics", "moviemeta.prom")
		if dst != nil {
			*dst = b.cfg.Metrics.Textfile
		}
	}
}

// WriteConfig encodes cfg as TOML next to its temp directories and returns
// the file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "moviemeta.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
