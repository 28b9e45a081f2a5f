package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"promptgate/internal/metrics"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock, opts ...Option) *Limiter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(time.Minute, logger, append([]Option{WithClock(clock.Now)}, opts...)...)
}

func TestLimiter_OnePerWindow(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	if !l.Allow("a") {
		t.Fatal("first request refused")
	}
	if l.Allow("a") {
		t.Fatal("second request in the same window allowed")
	}

	clock.Advance(30 * time.Second)
	if l.Allow("a") {
		t.Fatal("request after half a window allowed")
	}

	clock.Advance(31 * time.Second)
	if !l.Allow("a") {
		t.Fatal("request after a full window refused")
	}
}

func TestLimiter_RefusalDoesNotExtendWindow(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	l.Allow("a")
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		l.Allow("a")
	}

	clock.Advance(11 * time.Second)
	if !l.Allow("a") {
		t.Fatal("refused attempts pushed the window back")
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	if !l.Allow("a") || !l.Allow("b") {
		t.Fatal("distinct identities share a budget")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestLimiter_RetryAfter(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	if got := l.RetryAfter("unknown"); got != 0 {
		t.Errorf("RetryAfter(unknown) = %v, want 0", got)
	}

	l.Allow("a")
	clock.Advance(20 * time.Second)

	got := l.RetryAfter("a")
	if got < 39*time.Second || got > 41*time.Second {
		t.Errorf("RetryAfter() = %v, want about 40s", got)
	}
}

func TestLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock, WithIdleTTL(5*time.Minute))

	l.Allow("old")
	clock.Advance(4 * time.Minute)
	l.Allow("fresh")
	clock.Advance(2 * time.Minute)

	if removed := l.Prune(clock.Now()); removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}

	// A pruned identity starts over with a full allowance
	if !l.Allow("old") {
		t.Error("pruned identity refused")
	}
}

func TestLimiter_IdleTTLNeverBelowWindow(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock, WithIdleTTL(time.Second))

	l.Allow("a")
	clock.Advance(30 * time.Second)
	if removed := l.Prune(clock.Now()); removed != 0 {
		t.Fatalf("Prune() removed %d entries inside the window", removed)
	}
	if l.Allow("a") {
		t.Error("identity regained its allowance early")
	}
}

func TestLimiter_RunStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func entriesGauge(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == "promptgate_rate_limiter_entries" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("rate limiter gauge not registered")
	return 0
}

func TestLimiter_EntriesGaugeTracksInserts(t *testing.T) {
	clock := newFakeClock()
	m := metrics.New()
	l := newTestLimiter(clock, WithMetrics(m), WithIdleTTL(5*time.Minute))

	l.Allow("a")
	l.Allow("b")
	l.Allow("a")
	if got := entriesGauge(t, m); got != 2 {
		t.Errorf("gauge after inserts = %v, want 2", got)
	}

	clock.Advance(6 * time.Minute)
	l.Prune(clock.Now())
	if got := entriesGauge(t, m); got != 0 {
		t.Errorf("gauge after prune = %v, want 0", got)
	}
}
