package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeSite()
	c.normalizeFetch()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeRedis()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizeMetrics()
}

func (c *Config) normalizeSite() {
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = defaultBaseURL
	}
	c.Site.UserAgent = strings.TrimSpace(c.Site.UserAgent)
	if c.Site.UserAgent == "" {
		c.Site.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.MinIntervalMillis < 0 {
		c.Fetch.MinIntervalMillis = 0
	}
}

func (c *Config) normalizeCache() error {
	var err error
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.Codec = strings.ToLower(strings.TrimSpace(c.Cache.Codec))
	if c.Cache.Codec == "" {
		c.Cache.Codec = defaultCacheCodec
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.SQLitePath) == "" {
		c.Cache.SQLitePath = defaultSQLitePath
	}
	if c.Cache.SQLitePath, err = expandPath(c.Cache.SQLitePath); err != nil {
		return fmt.Errorf("cache.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRedis() {
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	c.Redis.Prefix = strings.Trim(strings.TrimSpace(c.Redis.Prefix), ":")
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}
