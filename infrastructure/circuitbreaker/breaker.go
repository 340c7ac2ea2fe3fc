// Package circuitbreaker provides a circuit breaker for calls to the backend store.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of the circuit breaker
type State int

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = iota
	// StateOpen means the circuit is open and requests are blocked
	StateOpen
	// StateHalfOpen means the circuit is half-open and testing if service recovered
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in half-open state before closing
	SuccessThreshold int
	// Timeout is how long the circuit stays open before transitioning to half-open
	Timeout time.Duration
	// IsFailure decides whether an error counts against the circuit. Nil counts
	// every error; callers use it to ignore 4xx answers from a healthy server.
	IsFailure func(error) bool
	// OnStateChange is an optional callback when state changes
	OnStateChange func(from, to State)
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
	}
}

// Breaker implements a circuit breaker pattern
type Breaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	config          Config
	now             func() time.Time
}

// New creates a new circuit breaker with the given configuration
func New(config Config) *Breaker {
	defaults := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &Breaker{
		state:  StateClosed,
		config: config,
		now:    time.Now,
	}
}

// Execute runs fn with circuit breaker protection. A cancelled context is
// reported without invoking fn and without touching the counters.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn()
	b.afterCall(err)

	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		elapsed := b.now().Sub(b.lastFailureTime)
		if elapsed < b.config.Timeout {
			return fmt.Errorf("%w: retry after %v", ErrCircuitOpen, b.config.Timeout-elapsed)
		}
		b.transitionTo(StateHalfOpen)
	}

	return nil
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && b.config.IsFailure(err) {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) recordFailure() {
	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateOpen:
	}
}

func (b *Breaker) recordSuccess() {
	b.failureCount = 0

	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState
	b.successCount = 0
	if newState != StateHalfOpen {
		b.failureCount = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(oldState, newState)
	}
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset resets the circuit breaker to closed state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}
