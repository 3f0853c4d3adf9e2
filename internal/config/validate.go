package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSite() error {
	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("site.base_url must use http or https, got %q", c.Site.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("site.base_url must include a host")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr must be set when cache.backend is redis")
		}
		if c.Redis.DB < 0 {
			return errors.New("redis.db must be >= 0")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (want file, sqlite or redis)", c.Cache.Backend)
	}
	switch c.Cache.Codec {
	case CodecGzip, CodecSnappy:
	default:
		return fmt.Errorf("cache.codec: unsupported value %q (want gzip or snappy)", c.Cache.Codec)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
