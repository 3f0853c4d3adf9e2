package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/config"
	"moviemeta/internal/fetch"
	"moviemeta/internal/logging"
	"moviemeta/internal/metrics"
	"moviemeta/internal/services"
	"moviemeta/internal/titles"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// newFetcher is replaced in tests.
	newFetcher func(cfg *config.Config, logger *slog.Logger) fetch.Fetcher
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		newFetcher: func(cfg *config.Config, logger *slog.Logger) fetch.Fetcher {
			return fetch.NewFromConfig(cfg, logger)
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session bundles everything one command invocation needs. Close flushes
// metrics and releases the store.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *cachestore.Store
	metrics  *metrics.Observer
	resolver *titles.Resolver
}

func (c *commandContext) openSession(cmd *cobra.Command) (*session, context.Context, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfig, "cli", "logging", "", err)
	}

	ctx := services.WithRequestID(cmd.Context(), uuid.NewString())
	store, err := cachestore.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	observer := metrics.New()
	resolver := titles.NewResolver(
		store,
		c.newFetcher(cfg, logger),
		fetch.NewSite(cfg.Site.BaseURL),
		titles.WithObserver(titles.Observers{titles.NewLogObserver(logger), observer}),
	)
	s := &session{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		metrics:  observer,
		resolver: resolver,
	}
	logging.WithContext(ctx, logger).Debug("session opened",
		logging.String("backend", cfg.Cache.Backend),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
	)
	return s, ctx, nil
}

func (s *session) Close() error {
	var errs []error
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}

// withSession runs fn with an opened session and closes it afterwards.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, ctx, err := c.openSession(cmd)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	closeErr := s.Close()
	if runErr != nil {
		if closeErr != nil {
			s.logger.Warn("session close failed", logging.Error(closeErr))
		}
		return runErr
	}
	return closeErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
