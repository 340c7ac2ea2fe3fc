package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	infrahttp "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/http"
)

// DefaultMaxBodyBytes limits how much of a response body is read. USLM
// titles run to tens of megabytes.
const DefaultMaxBodyBytes = 256 * 1024 * 1024

// ErrBodyTooLarge is returned when a response body exceeds the transport's limit.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPTransport sends plain GET requests through a pooled client.
type HTTPTransport struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPTransport creates a transport. Static headers such as X-API-Key go
// in cfg.Headers.
func NewHTTPTransport(cfg *infrahttp.ClientConfig) *HTTPTransport {
	return &HTTPTransport{client: infrahttp.NewClient(cfg), maxBody: DefaultMaxBodyBytes}
}

// WithMaxBodyBytes sets the body limit. Non-positive values keep the default.
func (t *HTTPTransport) WithMaxBodyBytes(n int64) *HTTPTransport {
	if n > 0 {
		t.maxBody = n
	}
	return t
}

// Do performs a GET request.
func (t *HTTPTransport) Do(ctx context.Context, locator string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > t.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, locator, t.maxBody)
	}

	contentType := resp.Header.Get("Content-Type")
	return &Response{
		Locator:     locator,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Kind:        KindOf(contentType),
		Header:      resp.Header,
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() {
	infrahttp.CloseIdle(t.client)
}
