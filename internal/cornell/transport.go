package cornell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	infrahttp "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/http"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
)

// DefaultUserAgent identifies the scraper to Cornell LII.
const DefaultUserAgent = "legal-indexer/1.0 (educational use)"

const (
	defaultRequestTimeout = 30 * time.Second
	maxPageBytes          = 20 * 1024 * 1024
)

var errNoResponse = errors.New("no response received")

// TransportConfig configures a CollyTransport.
type TransportConfig struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// CollyTransport fetches pages with a colly collector. Each request runs on
// a clone of the base collector bound to the caller's context; clones share
// the pooled HTTP transport.
type CollyTransport struct {
	base   *colly.Collector
	client *http.Client
}

// NewCollyTransport creates a transport. Rate limiting is left to the fetch
// client, so the collector has no limit rules.
func NewCollyTransport(cfg TransportConfig) *CollyTransport {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	client := infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout, Headers: headers})

	base := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(maxPageBytes),
	)
	base.SetRequestTimeout(timeout)
	base.WithTransport(client.Transport)

	return &CollyTransport{base: base, client: client}
}

// Do visits locator and returns the response, whatever its status.
func (t *CollyTransport) Do(ctx context.Context, locator string) (*fetch.Response, error) {
	c := t.base.Clone()
	colly.StdlibContext(ctx)(c)

	var (
		resp     *fetch.Response
		visitErr error
	)
	capture := func(r *colly.Response) {
		header := http.Header{}
		if r.Headers != nil {
			header = r.Headers.Clone()
		}
		contentType := header.Get("Content-Type")
		resp = &fetch.Response{
			Locator:     r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: contentType,
			Kind:        fetch.KindOf(contentType),
			Header:      header,
			Body:        r.Body,
			FetchedAt:   time.Now(),
		}
	}
	c.OnResponse(capture)
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			capture(r)
			return
		}
		visitErr = err
	})

	err := c.Visit(locator)
	c.Wait()

	if resp != nil {
		return resp, nil
	}
	if visitErr != nil {
		return nil, visitErr
	}
	if err != nil {
		return nil, fmt.Errorf("visit %s: %w", locator, err)
	}
	return nil, fmt.Errorf("visit %s: %w", locator, errNoResponse)
}

// Close releases idle connections.
func (t *CollyTransport) Close() {
	infrahttp.CloseIdle(t.client)
}
