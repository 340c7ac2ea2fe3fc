// Package fetch provides the rate-limited, caching fetch client shared by
// the GovInfo and Cornell sources.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	infraerrors "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/errors"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

// Transport performs one request. It returns a Response for every HTTP
// answer, including non-2xx ones, and an error only when no answer arrived.
type Transport interface {
	Do(ctx context.Context, locator string) (*Response, error)
	Close()
}

// Config configures a Client.
type Config struct {
	// Name labels metrics and logs, e.g. "govinfo".
	Name string
	// Ceiling requests are allowed per Period.
	Ceiling int
	Period  time.Duration
	// Margin is added to every window wait. Zero uses DefaultMargin.
	Margin time.Duration
	// CacheTTL applies to the default memory cache.
	CacheTTL time.Duration
	// Retry bounds retries of rate-limited and transient failures.
	Retry retry.Config
	// Clock drives the window and memory cache. Nil uses the wall clock.
	Clock Clock
}

// Stats is a snapshot of client state for health reports.
type Stats struct {
	CacheSize      int           `json:"cache_size"`
	RecentRequests int           `json:"recent_requests"`
	Remaining      int           `json:"rate_limit_remaining"`
	Ceiling        int           `json:"rate_limit"`
	Period         time.Duration `json:"rate_period"`
}

// Client fetches resources through a rate window and a response cache.
// It is safe for concurrent use.
type Client struct {
	name      string
	transport Transport
	window    *Window
	cache     Cache
	retry     retry.Config
	metrics   *metrics.Metrics
	log       infralogger.Logger
}

// NewClient builds a client. A nil cache uses a MemoryCache with
// cfg.CacheTTL; m may be nil.
func NewClient(cfg Config, transport Transport, cache Cache, m *metrics.Metrics, log infralogger.Logger) *Client {
	margin := cfg.Margin
	if margin == 0 {
		margin = DefaultMargin
	}
	if cache == nil {
		cache = NewMemoryCache(cfg.CacheTTL, cfg.Clock)
	}

	retryCfg := cfg.Retry
	if retryCfg.IsRetryable == nil {
		retryCfg.IsRetryable = IsRetryable
	}

	return &Client{
		name:      cfg.Name,
		transport: transport,
		window:    NewWindow(cfg.Ceiling, cfg.Period, margin, cfg.Clock),
		cache:     cache,
		retry:     retryCfg,
		metrics:   m,
		log:       log.With(infralogger.String("client", cfg.Name)),
	}
}

// IsRetryable retries rate limiting, 5xx answers and transient transport
// failures. Other 4xx answers are final.
func IsRetryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch {
	case errors.Is(fe.Err, ErrRateLimited):
		return true
	case errors.Is(fe.Err, ErrTransport):
		return retry.DefaultIsRetryable(fe.Err)
	case errors.Is(fe.Err, ErrStatus):
		return fe.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// Fetch returns the resource at locator. With useCache a live cache entry
// is returned without touching the network or the window, and a successful
// answer is stored.
func (c *Client) Fetch(ctx context.Context, locator string, useCache bool) (*Response, error) {
	if useCache {
		if resp, ok := c.cached(ctx, locator); ok {
			c.metrics.RecordFetch(c.name, metrics.OutcomeCacheHit)
			return resp, nil
		}
	}

	var resp *Response
	err := retry.Retry(ctx, c.retry, func() error {
		r, attemptErr := c.attempt(ctx, locator)
		if attemptErr != nil {
			return attemptErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		if setErr := c.cache.Set(ctx, CacheKey(locator), resp); setErr != nil {
			c.log.Warn("Failed to cache response",
				infralogger.String("locator", locator),
				infralogger.Error(setErr),
			)
		}
	}
	return resp, nil
}

func (c *Client) cached(ctx context.Context, locator string) (*Response, bool) {
	resp, ok, err := c.cache.Get(ctx, CacheKey(locator))
	if err != nil {
		c.log.Warn("Cache lookup failed",
			infralogger.String("locator", locator),
			infralogger.Error(err),
		)
		return nil, false
	}
	return resp, ok
}

// CacheKey normalizes a locator so equivalent spellings share a cache entry:
// scheme and host are lowercased, query parameters sorted, the fragment
// dropped and a trailing slash trimmed. Unparseable locators are used as is.
func CacheKey(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return locator
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	return u.String()
}

// attempt sends one request through the window and classifies the answer.
func (c *Client) attempt(ctx context.Context, locator string) (*Response, error) {
	waited, err := c.window.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveWait(c.name, waited)
	if waited > 0 {
		c.log.Debug("Waited for rate window", infralogger.Duration("waited", waited))
	}

	resp, err := c.transport.Do(ctx, locator)
	if err != nil {
		c.metrics.RecordFetch(c.name, metrics.OutcomeTransport)
		return nil, &FetchError{Locator: locator, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	if resp.Kind == "" {
		resp.Kind = KindOf(resp.ContentType)
	}
	if resp.Locator == "" {
		resp.Locator = locator
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.metrics.RecordFetch(c.name, metrics.OutcomeOK)
		return resp, nil
	}

	fetchErr := statusError(resp)
	c.metrics.RecordFetch(c.name, outcomeFor(fetchErr.Err))

	if errors.Is(fetchErr, ErrRateLimited) {
		c.log.Warn("Rate limited by server, backing off",
			infralogger.String("locator", locator),
			infralogger.Duration("retry_after", fetchErr.After),
		)
		if _, backoffErr := c.window.Backoff(ctx, fetchErr.After); backoffErr != nil {
			return nil, backoffErr
		}
	}
	return nil, fetchErr
}

// maxPlainMessage bounds non-JSON error bodies kept on a FetchError; longer
// ones are usually full HTML error pages.
const maxPlainMessage = 256

// statusError builds a FetchError from a non-2xx response, reusing the
// shared HTTP error body parser.
func statusError(resp *Response) *FetchError {
	fe := &FetchError{
		Locator:    resp.Locator,
		StatusCode: resp.StatusCode,
		Err:        sentinelFor(resp.StatusCode),
	}

	parsed := infraerrors.ParseHTTPError(&http.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       io.NopCloser(bytes.NewReader(resp.Body)),
	})
	var httpErr *infraerrors.HTTPError
	if errors.As(parsed, &httpErr) {
		fe.After = httpErr.After
		if resp.Kind == KindJSON || len(httpErr.Message) <= maxPlainMessage {
			fe.Message = httpErr.Message
		}
	}
	return fe
}

func outcomeFor(sentinel error) string {
	switch {
	case errors.Is(sentinel, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(sentinel, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(sentinel, ErrRateLimited):
		return metrics.OutcomeRateLimited
	default:
		return metrics.OutcomeStatus
	}
}

// Stats reports cache size and window usage.
func (c *Client) Stats(ctx context.Context) Stats {
	size, err := c.cache.Len(ctx)
	if err != nil {
		c.log.Warn("Cache size unavailable", infralogger.Error(err))
	}
	return Stats{
		CacheSize:      size,
		RecentRequests: c.window.Len(),
		Remaining:      c.window.Remaining(),
		Ceiling:        c.window.Ceiling(),
		Period:         c.window.Period(),
	}
}

// Close releases the transport's idle connections.
func (c *Client) Close() {
	c.transport.Close()
}
