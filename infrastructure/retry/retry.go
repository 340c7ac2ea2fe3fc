// Package retry provides retry utilities with exponential backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when max retry attempts are exceeded
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled during retry
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// Config configures retry behavior
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt)
	MaxAttempts int
	// InitialDelay is the initial delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier (default: 2.0)
	Multiplier float64
	// IsRetryable determines if an error should be retried
	IsRetryable func(error) bool
}

// AfterHinter is implemented by errors that know how long the remote side
// asked the caller to wait, such as a 429 with Retry-After.
type AfterHinter interface {
	RetryAfter() time.Duration
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  DefaultIsRetryable,
	}
}

var retryablePatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"temporary failure",
	"network is unreachable",
	"unexpected eof",
}

// DefaultIsRetryable reports true for network errors and timeouts.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// Retry executes fn with exponential backoff. A retryable error that carries
// an AfterHinter stretches the wait to at least the hinted duration.
func Retry(ctx context.Context, config Config, fn func() error) error {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = defaults.Multiplier
	}
	if config.IsRetryable == nil {
		config.IsRetryable = defaults.IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := backoff(config, attempt)
		var hinter AfterHinter
		if errors.As(err, &hinter) && hinter.RetryAfter() > wait {
			wait = hinter.RetryAfter()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}

func backoff(config Config, attempt int) time.Duration {
	d := time.Duration(float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
	if d > config.MaxDelay {
		return config.MaxDelay
	}
	return d
}
