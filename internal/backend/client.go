// Package backend is the REST client of the legal records store. Every call
// is paced by a token bucket, guarded by a circuit breaker and counted.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/circuitbreaker"
	infraerrors "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/errors"
	infrahttp "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

const (
	// DefaultTimeout bounds one backend request.
	DefaultTimeout = 30 * time.Second
	// DefaultRequestsPerSecond paces backend calls.
	DefaultRequestsPerSecond = 20
	// DefaultBurst is the token bucket size.
	DefaultBurst = 10

	maxResponseBytes = 32 << 20
)

// ErrNoBaseURL is returned when the client has no store URL.
var ErrNoBaseURL = errors.New("backend: base URL is required")

// Config configures the store client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer shared secret.
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Breaker           circuitbreaker.Config
}

// Client talks to the records store. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	metrics *metrics.Metrics
	log     infralogger.Logger

	calls  atomic.Int64
	failed atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a store client. A negative RequestsPerSecond disables
// pacing.
func NewClient(cfg Config, m *metrics.Metrics, log infralogger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond < 0 {
		limit = rate.Inf
	}

	headers := map[string]string{"Accept": "application/json"}
	if cfg.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Token
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = serverSide
	logger := log.With(infralogger.String("component", "backend"))
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Backend circuit breaker state changed",
			infralogger.String("from", from.String()),
			infralogger.String("to", to.String()),
		)
	}

	hc := infrahttp.NewClient(&infrahttp.ClientConfig{
		Timeout: cfg.Timeout,
		Headers: headers,
	})

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: circuitbreaker.New(breakerCfg),
		metrics: m,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Calls is the number of backend calls made so far.
func (c *Client) Calls() int64 { return c.calls.Load() }

// FailedCalls is the number of calls that ended in a Failure.
func (c *Client) FailedCalls() int64 { return c.failed.Load() }

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State { return c.breaker.State() }

// Close releases idle connections.
func (c *Client) Close() {
	infrahttp.CloseIdle(c.http)
}

// For returns the view of the store for one corpus.
func (c *Client) For(corpus domain.Corpus) *CorpusClient {
	return &CorpusClient{client: c, corpus: corpus}
}

// do performs one call and decodes the envelope data into out when out is
// not nil. Every outcome other than success is a *Failure or the breaker's
// open-circuit error.
func (c *Client) do(ctx context.Context, corpus domain.Corpus, op, method, path string, body, out any) error {
	c.calls.Add(1)
	err := c.breaker.Execute(ctx, func() error {
		return c.roundTrip(ctx, method, path, body, out)
	})
	if err != nil {
		c.failed.Add(1)
		c.log.Debug("Backend call failed",
			infralogger.String("corpus", string(corpus)),
			infralogger.String("operation", op),
			infralogger.Error(err),
		)
	}
	c.metrics.RecordBackendCall(string(corpus), op, err == nil)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	fail := func(status int, msg string, err error) error {
		return &Failure{Method: method, Path: path, StatusCode: status, Message: msg, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(0, "", err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fail(0, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fail(0, "create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		msg := ""
		var he *infraerrors.HTTPError
		if errors.As(httpErr, &he) {
			msg = he.Message
		}
		return fail(resp.StatusCode, msg, httpErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(resp.StatusCode, "read response", err)
	}

	var env envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return fail(resp.StatusCode, "undecodable response", err)
	}
	if !env.Success {
		msg := env.errorText()
		if msg == "" {
			msg = "request was not successful"
		}
		return fail(resp.StatusCode, msg, nil)
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err = json.Unmarshal(env.Data, out); err != nil {
		return fail(resp.StatusCode, "undecodable data", err)
	}
	return nil
}

func (c *Client) create(ctx context.Context, corpus domain.Corpus, op, path string, body any) (ID, error) {
	var rec created
	if err := c.do(ctx, corpus, op, http.MethodPost, path, body, &rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		c.failed.Add(1)
		return "", &Failure{Method: http.MethodPost, Path: path, Message: "response has no id"}
	}
	return rec.ID, nil
}

func joinPath(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}
