// Package context provides the timeouts shared by legal-indexer commands.
package context

import (
	"context"
	"time"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown of the serve command.
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultPingTimeout bounds one dependency ping.
	DefaultPingTimeout = 5 * time.Second

	// DefaultSetupTimeout bounds connecting to optional dependencies at startup.
	DefaultSetupTimeout = 30 * time.Second
)

// WithShutdownTimeout returns a context for shutdown work. It is detached
// from parent's cancellation, which has usually already fired.
func WithShutdownTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), DefaultShutdownTimeout)
}

// WithPingTimeout derives a context for one health ping.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}

// WithSetupTimeout derives a context for startup connections.
func WithSetupTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultSetupTimeout)
}
