package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"moviemeta/internal/config"
	"moviemeta/internal/logging"
	"moviemeta/internal/services"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "moviemeta/dev"
	// maxBodyBytes bounds a single page read.
	maxBodyBytes = 8 << 20
)

// Fetcher retrieves the body of a page as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Error describes a failed page fetch. It matches services.ErrFetch.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrFetch}
	}
	return []error{services.ErrFetch, e.Err}
}

// HTTPFetcher fetches pages over HTTP with a fixed user agent and an optional
// minimum interval between requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMinInterval spaces consecutive requests at least d apart. Zero disables
// the limiter.
func WithMinInterval(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logging.NewComponentLogger(logger, "fetch")
	}
}

// New creates an HTTP fetcher with a 20 second timeout.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		logger:    logging.NewComponentLogger(nil, "fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig builds a fetcher from the [site] and [fetch] sections.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *HTTPFetcher {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout()}),
		WithUserAgent(cfg.Site.UserAgent),
		WithMinInterval(cfg.FetchMinInterval()),
		WithLogger(logger),
	}
	return New(append(base, opts...)...)
}

// Fetch performs a GET and returns the body. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &Error{URL: url, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	requestStart := time.Now()
	resp, err := f.client.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("execute request (latency=%v): %w", latency, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", &Error{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return "", &Error{URL: url, StatusCode: resp.StatusCode, Err: errors.New("response body too large")}
	}
	page, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &Error{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	f.logger.Debug("page fetched",
		logging.String(logging.FieldURL, url),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(body)),
		logging.Duration("latency", latency),
	)
	return page, nil
}

// decodeBody converts the page to UTF-8 using the Content-Type charset, a
// BOM or a meta tag. Undeclared non-UTF-8 pages are read as windows-1252.
func decodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(decoded), nil
}
