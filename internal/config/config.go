package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix is prepended to every environment override (MOVIEMETA_CACHE_DIR, ...).
const EnvPrefix = "MOVIEMETA_"

// Site describes the remote title database web interface.
type Site struct {
	BaseURL   string `toml:"base_url" env:"BASE_URL"`
	UserAgent string `toml:"user_agent" env:"USER_AGENT"`
}

// Fetch contains HTTP fetch settings for the page fetcher.
type Fetch struct {
	TimeoutSeconds    int `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	MinIntervalMillis int `toml:"min_interval_ms" env:"MIN_INTERVAL_MS"`
}

// Cache contains configuration for the purpose-tagged page cache.
type Cache struct {
	Enabled    bool   `toml:"enabled" env:"ENABLED"`
	Backend    string `toml:"backend" env:"BACKEND"` // file, sqlite, redis
	Codec      string `toml:"codec" env:"CODEC"`     // gzip, snappy
	Dir        string `toml:"dir" env:"DIR"`
	SQLitePath string `toml:"sqlite_path" env:"SQLITE_PATH"`
}

// Redis contains connection settings for the redis cache backend.
type Redis struct {
	Addr     string `toml:"addr" env:"ADDR"`
	Password string `toml:"password" env:"PASSWORD"`
	DB       int    `toml:"db" env:"DB"`
	Prefix   string `toml:"prefix" env:"PREFIX"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"FORMAT"`
	Level  string `toml:"level" env:"LEVEL"`
	Dir    string `toml:"dir" env:"DIR"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile" env:"TEXTFILE"`
}

// Config encapsulates all configuration values for moviemeta.
//
// Configuration sections by subsystem:
//   - Site: base URL and user agent of the title database
//   - Fetch: HTTP timeout and politeness interval
//   - Cache: enable switch, backend, codec and storage paths
//   - Redis: redis backend connection
//   - Logging: log format, level and optional log directory
//   - Metrics: optional Prometheus textfile output
type Config struct {
	Site    Site    `toml:"site" envPrefix:"SITE_"`
	Fetch   Fetch   `toml:"fetch" envPrefix:"FETCH_"`
	Cache   Cache   `toml:"cache" envPrefix:"CACHE_"`
	Redis   Redis   `toml:"redis" envPrefix:"REDIS_"`
	Logging Logging `toml:"logging" envPrefix:"LOG_"`
	Metrics Metrics `toml:"metrics" envPrefix:"METRICS_"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file so they always win. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("moviemeta.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the configured backends write to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case BackendFile:
			dirs = append(dirs, c.Cache.Dir)
		case BackendSQLite:
			dirs = append(dirs, filepath.Dir(c.Cache.SQLitePath))
		}
	}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "moviemeta", "pages")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/moviemeta/pages"
	}
	return filepath.Join(home, ".cache", "moviemeta", "pages")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
