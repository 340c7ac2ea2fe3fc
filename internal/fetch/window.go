package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultMargin is added to every computed wait so the oldest request has
// fully left the window before the next one is sent.
const DefaultMargin = time.Second

// Window is a sliding-window rate limiter: at most ceiling requests are
// started in any period. Callers are serialized by a one-slot lock channel,
// so two callers can never both observe spare capacity.
type Window struct {
	ceiling int
	period  time.Duration
	margin  time.Duration
	clock   Clock

	lock chan struct{}

	mu     sync.Mutex // guards stamps for Len and Remaining
	stamps []time.Time
}

// NewWindow creates a window allowing ceiling requests per period.
// A nil clock uses the wall clock.
func NewWindow(ceiling int, period, margin time.Duration, clock Clock) *Window {
	if ceiling <= 0 {
		ceiling = 1
	}
	return &Window{
		ceiling: ceiling,
		period:  period,
		margin:  margin,
		clock:   clockOrSystem(clock),
		lock:    make(chan struct{}, 1),
	}
}

func (w *Window) acquireLock(ctx context.Context) error {
	select {
	case w.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Window) releaseLock() {
	<-w.lock
}

// Acquire records a request, first waiting while the window is full.
// It returns the time spent waiting.
func (w *Window) Acquire(ctx context.Context) (time.Duration, error) {
	if err := w.acquireLock(ctx); err != nil {
		return 0, err
	}
	defer w.releaseLock()

	var waited time.Duration
	for {
		now := w.clock.Now()

		w.mu.Lock()
		w.prune(now)
		if len(w.stamps) < w.ceiling {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return waited, nil
		}
		wait := w.untilFree(now)
		w.mu.Unlock()

		if err := w.clock.Sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// Backoff blocks every caller for max(hint, time until the oldest request
// leaves the window plus the margin). It is used after the server answered
// 429.
func (w *Window) Backoff(ctx context.Context, hint time.Duration) (time.Duration, error) {
	if err := w.acquireLock(ctx); err != nil {
		return 0, err
	}
	defer w.releaseLock()

	now := w.clock.Now()
	w.mu.Lock()
	w.prune(now)
	wait := w.untilFree(now)
	w.mu.Unlock()

	if hint > wait {
		wait = hint
	}
	if err := w.clock.Sleep(ctx, wait); err != nil {
		return 0, err
	}
	return wait, nil
}

// untilFree is the wait until the oldest stamp exits, plus the margin.
// Callers hold mu.
func (w *Window) untilFree(now time.Time) time.Duration {
	if len(w.stamps) == 0 {
		return w.margin
	}
	wait := w.stamps[0].Add(w.period).Sub(now) + w.margin
	if wait < w.margin {
		wait = w.margin
	}
	return wait
}

// prune drops stamps older than the period. Callers hold mu.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.period)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Len returns the number of requests inside the current window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.stamps)
}

// Remaining returns how many requests may start now without waiting.
func (w *Window) Remaining() int {
	return w.ceiling - w.Len()
}

// Ceiling returns the configured request ceiling.
func (w *Window) Ceiling() int {
	return w.ceiling
}

// Period returns the configured window length.
func (w *Window) Period() time.Duration {
	return w.period
}
