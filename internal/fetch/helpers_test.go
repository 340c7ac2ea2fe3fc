package fetch_test

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// countingTransport serves canned responses and records every call.
type countingTransport struct {
	mu        sync.Mutex
	calls     []string
	responses []*fetch.Response
	err       error
	closed    bool
}

func (t *countingTransport) Do(_ context.Context, locator string) (*fetch.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, locator)
	if t.err != nil {
		return nil, t.err
	}
	if len(t.responses) == 0 {
		return &fetch.Response{StatusCode: 200, ContentType: "text/plain", Body: []byte("ok")}, nil
	}
	resp := t.responses[0]
	if len(t.responses) > 1 {
		t.responses = t.responses[1:]
	}
	copied := *resp
	return &copied, nil
}

func (t *countingTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *countingTransport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
