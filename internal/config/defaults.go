package config

import "time"

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Cache codecs.
const (
	CodecGzip   = "gzip"
	CodecSnappy = "snappy"
)

const (
	defaultConfigPath       = "~/.config/moviemeta/config.toml"
	defaultBaseURL          = "http://www.imdb.com"
	defaultUserAgent        = "moviemeta/dev"
	defaultFetchTimeout     = 20
	defaultFetchMinInterval = 500
	defaultCacheBackend     = BackendFile
	defaultCacheCodec       = CodecGzip
	defaultSQLitePath       = "~/.cache/moviemeta/cache.db"
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultRedisPrefix      = "moviemeta"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Site: Site{
			BaseURL:   defaultBaseURL,
			UserAgent: defaultUserAgent,
		},
		Fetch: Fetch{
			TimeoutSeconds:    defaultFetchTimeout,
			MinIntervalMillis: defaultFetchMinInterval,
		},
		Cache: Cache{
			Enabled:    true,
			Backend:    defaultCacheBackend,
			Codec:      defaultCacheCodec,
			Dir:        defaultCacheDir(),
			SQLitePath: defaultSQLitePath,
		},
		Redis: Redis{
			Addr:   defaultRedisAddr,
			Prefix: defaultRedisPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// FetchTimeout returns the configured HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// FetchMinInterval returns the minimum spacing between remote requests.
func (c *Config) FetchMinInterval() time.Duration {
	return time.Duration(c.Fetch.MinIntervalMillis) * time.Millisecond
}
