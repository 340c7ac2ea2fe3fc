// Package gin provides the Gin server lifecycle, health endpoints and
// request middleware used by the legal-indexer ops server.
package gin

import (
	"time"
)

// Default timeout values for HTTP server configuration.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	// Address is the host:port to listen on.
	Address string

	// Debug enables Gin debug mode.
	Debug bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ServiceName is reported by the health endpoint.
	ServiceName string

	// ServiceVersion is reported by the health endpoint.
	ServiceVersion string
}

// SetDefaults applies default values to the config where values are not set.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8090"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
}
