package logger

import (
	"context"
	"sync"
)

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a shared warn-level
// stderr logger when there is none.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallback()
}

var fallback = sync.OnceValue(func() Logger {
	l, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		return NewNop()
	}
	return l
})
