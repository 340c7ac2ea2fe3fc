// Package http provides the pooled HTTP client used by the fetch and backend clients.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 100

	// DefaultMaxIdleConnsPerHost is the default maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10

	// DefaultIdleConnTimeout is the default idle connection timeout
	DefaultIdleConnTimeout = 90 * time.Second

	// DefaultResponseHeaderTimeout is the default response header timeout
	DefaultResponseHeaderTimeout = 30 * time.Second

	// DefaultTLSHandshakeTimeout is the default TLS handshake timeout
	DefaultTLSHandshakeTimeout = 10 * time.Second
)

// ClientConfig configures an HTTP client.
type ClientConfig struct {
	// Timeout bounds a whole request including the body read. Zero uses DefaultTimeout.
	Timeout time.Duration

	// TLSConfig specifies the TLS configuration to use. Nil uses the default.
	TLSConfig *tls.Config

	// MaxIdleConns controls the maximum number of idle connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost controls idle connections kept per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays in the pool.
	IdleConnTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers.
	ResponseHeaderTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration

	// Headers are added to every request that does not already set them.
	Headers map[string]string
}

// NewClient creates a new HTTP client with pooled connections.
// If cfg is nil, default values are used.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          orDefault(cfg.MaxIdleConns, DefaultMaxIdleConns),
		MaxIdleConnsPerHost:   orDefault(cfg.MaxIdleConnsPerHost, DefaultMaxIdleConnsPerHost),
		IdleConnTimeout:       orDefault(cfg.IdleConnTimeout, DefaultIdleConnTimeout),
		ResponseHeaderTimeout: orDefault(cfg.ResponseHeaderTimeout, DefaultResponseHeaderTimeout),
		TLSHandshakeTimeout:   orDefault(cfg.TLSHandshakeTimeout, DefaultTLSHandshakeTimeout),
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       cfg.TLSConfig,
	}

	var rt http.RoundTripper = transport
	if len(cfg.Headers) > 0 {
		rt = &headerTransport{base: transport, headers: cfg.Headers}
	}

	return &http.Client{
		Timeout:   orDefault(cfg.Timeout, DefaultTimeout),
		Transport: rt,
	}
}

// CloseIdle releases pooled connections held by client.
func CloseIdle(client *http.Client) {
	if client != nil {
		client.CloseIdleConnections()
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(clone)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the pool.
func (t *headerTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}
