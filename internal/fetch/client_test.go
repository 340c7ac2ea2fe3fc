package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrahttp "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

func newTestClient(transport fetch.Transport, clock fetch.Clock) *fetch.Client {
	return fetch.NewClient(fetch.Config{
		Name:     "test",
		Ceiling:  100,
		Period:   time.Minute,
		CacheTTL: time.Hour,
		Retry:    retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Clock:    clock,
	}, transport, nil, metrics.New(), infralogger.NewNop())
}

func TestClient_CacheHitSkipsTransportUntilTTL(t *testing.T) {
	clock := newFakeClock()
	transport := &countingTransport{}
	client := newTestClient(transport, clock)
	ctx := context.Background()

	for range 3 {
		resp, err := client.Fetch(ctx, "https://example.test/a", true)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text())
	}
	assert.Equal(t, 1, transport.Calls())

	clock.Advance(time.Hour)
	_, err := client.Fetch(ctx, "https://example.test/a", true)
	require.NoError(t, err)
	assert.Equal(t, 2, transport.Calls())
}

func TestClient_EquivalentLocatorsShareCacheEntry(t *testing.T) {
	transport := &countingTransport{}
	client := newTestClient(transport, newFakeClock())
	ctx := context.Background()

	for _, locator := range []string{
		"https://api.example.test/collections/USCODE/?offset=0&pageSize=100",
		"HTTPS://API.Example.Test/collections/USCODE?pageSize=100&offset=0",
	} {
		_, err := client.Fetch(ctx, locator, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, transport.Calls())
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name, locator, want string
	}{
		{"host case", "HTTPS://Example.Test/a", "https://example.test/a"},
		{"query order", "https://example.test/a?b=2&a=1", "https://example.test/a?a=1&b=2"},
		{"trailing slash", "https://example.test/a/", "https://example.test/a"},
		{"fragment", "https://example.test/a#top", "https://example.test/a"},
		{"path case kept", "https://example.test/USCODE", "https://example.test/USCODE"},
		{"not a url", "title-9", "title-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fetch.CacheKey(tt.locator))
		})
	}
}

func TestClient_NoCacheAlwaysFetches(t *testing.T) {
	transport := &countingTransport{}
	client := newTestClient(transport, newFakeClock())

	for range 2 {
		_, err := client.Fetch(context.Background(), "https://example.test/a", false)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, transport.Calls())
	assert.Equal(t, 2, client.Stats(context.Background()).RecentRequests)
	assert.Zero(t, client.Stats(context.Background()).CacheSize)
}

func TestClient_ClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
		calls    int
	}{
		{name: "not found", status: http.StatusNotFound, sentinel: fetch.ErrNotFound, calls: 1},
		{name: "unauthorized", status: http.StatusUnauthorized, sentinel: fetch.ErrUnauthorized, calls: 1},
		{name: "forbidden", status: http.StatusForbidden, sentinel: fetch.ErrUnauthorized, calls: 1},
		{name: "bad request", status: http.StatusBadRequest, sentinel: fetch.ErrStatus, calls: 1},
		{name: "server error retried", status: http.StatusBadGateway, sentinel: fetch.ErrStatus, calls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &countingTransport{responses: []*fetch.Response{{
				StatusCode:  tt.status,
				ContentType: "application/json",
				Body:        []byte(`{"error":"nope"}`),
			}}}
			client := newTestClient(transport, newFakeClock())

			_, err := client.Fetch(context.Background(), "https://example.test/x", true)
			require.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.status, fetch.StatusCode(err))
			assert.Contains(t, err.Error(), "nope")
			assert.Equal(t, tt.calls, transport.Calls())
		})
	}
}

func TestClient_RateLimitedBacksOffAndRetries(t *testing.T) {
	clock := newFakeClock()
	transport := &countingTransport{responses: []*fetch.Response{
		{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"30"}}},
		{StatusCode: http.StatusOK, ContentType: "application/xml", Body: []byte("<a/>")},
	}}
	client := newTestClient(transport, clock)

	resp, err := client.Fetch(context.Background(), "https://example.test/x", false)
	require.NoError(t, err)
	assert.Equal(t, fetch.KindXML, resp.Kind)
	assert.Equal(t, 2, transport.Calls())

	// One request in the window: max(30s, 60s + 1s margin).
	assert.Equal(t, []time.Duration{61 * time.Second}, clock.Sleeps())
}

func TestClient_TransportErrors(t *testing.T) {
	transport := &countingTransport{err: errors.New("dial tcp: connection refused")}
	client := newTestClient(transport, newFakeClock())

	_, err := client.Fetch(context.Background(), "https://example.test/x", false)
	require.ErrorIs(t, err, fetch.ErrTransport)
	assert.Equal(t, 3, transport.Calls())

	permanent := &countingTransport{err: errors.New("unsupported protocol scheme")}
	client = newTestClient(permanent, newFakeClock())
	_, err = client.Fetch(context.Background(), "ftp://example.test/x", false)
	require.ErrorIs(t, err, fetch.ErrTransport)
	assert.Equal(t, 1, permanent.Calls())
}

func TestClient_Close(t *testing.T) {
	transport := &countingTransport{}
	client := newTestClient(transport, nil)
	client.Close()
	assert.True(t, transport.closed)
}

func TestHTTPTransport_SendsHeadersAndClassifies(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	transport := fetch.NewHTTPTransport(&infrahttp.ClientConfig{
		Timeout: 5 * time.Second,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	defer transport.Close()

	resp, err := transport.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, fetch.KindJSON, resp.Kind)

	var body struct{ OK bool }
	require.NoError(t, resp.DecodeJSON(&body))
	assert.True(t, body.OK)
}

func TestHTTPTransport_RejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/small" {
			_, _ = w.Write([]byte("0123456789"))
			return
		}
		_, _ = w.Write([]byte("0123456789A"))
	}))
	defer srv.Close()

	transport := fetch.NewHTTPTransport(&infrahttp.ClientConfig{Timeout: 5 * time.Second}).WithMaxBodyBytes(10)
	defer transport.Close()

	resp, err := transport.Do(context.Background(), srv.URL+"/small")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", resp.Text())

	_, err = transport.Do(context.Background(), srv.URL+"/large")
	require.ErrorIs(t, err, fetch.ErrBodyTooLarge)

	client := newTestClient(transport, nil)
	_, err = client.Fetch(context.Background(), srv.URL+"/large", false)
	require.ErrorIs(t, err, fetch.ErrBodyTooLarge)
	assert.False(t, fetch.IsRetryable(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, fetch.KindJSON, fetch.KindOf("application/json"))
	assert.Equal(t, fetch.KindXML, fetch.KindOf("text/xml; charset=utf-8"))
	assert.Equal(t, fetch.KindXML, fetch.KindOf("application/xhtml+xml"))
	assert.Equal(t, fetch.KindText, fetch.KindOf("text/html"))
	assert.Equal(t, fetch.KindText, fetch.KindOf(""))
}
