package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"promptgate/internal/metrics"
)

const (
	// defaultIdleTTL is how long an identity can go without a request before
	// its bucket is dropped. It is always at least one window, and a bucket
	// idle for a full window is full again, so dropping it changes nothing.
	defaultIdleTTL = 20 * time.Minute

	defaultGroomInterval = time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter admits at most one request per identity per window.
// State is process-local and advisory; it is not a security boundary.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	window        time.Duration
	idleTTL       time.Duration
	groomInterval time.Duration
	now           func() time.Time

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithIdleTTL sets how long idle identities are kept
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

// WithMetrics reports the tracked identity count
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// New creates a limiter allowing one request per window per identity
func New(window time.Duration, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		entries:       make(map[string]*entry),
		window:        window,
		idleTTL:       defaultIdleTTL,
		groomInterval: defaultGroomInterval,
		now:           time.Now,
		logger:        logger,
	}
	for _, o := range opts {
		o(l)
	}
	if l.idleTTL < l.window {
		l.idleTTL = l.window
	}
	return l
}

// Allow reports whether identity may make a request now, consuming its
// allowance when it may. A rejected call does not push the window back.
func (l *Limiter) Allow(identity string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[identity] = e
		l.metrics.SetRateLimiterEntries(len(l.entries))
	}
	e.lastSeen = now

	allowed := e.limiter.AllowN(now, 1)
	if !allowed {
		l.logger.Debug("rate limit hit", "identity", identity)
	}
	return allowed
}

// RetryAfter returns how long identity must wait before Allow would succeed
func (l *Limiter) RetryAfter(identity string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		return 0
	}
	missing := 1 - e.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(l.window))
}

// Len returns the number of tracked identities
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Prune drops identities idle longer than the idle TTL and returns how many went
func (l *Limiter) Prune(t time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, e := range l.entries {
		if t.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, identity)
			removed++
		}
	}
	l.metrics.SetRateLimiterEntries(len(l.entries))
	return removed
}

// Run grooms idle identities until ctx is cancelled
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.groomInterval)
	defer ticker.Stop()
	defer l.logger.Debug("rate limiter grooming stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Prune(l.now()); removed > 0 {
				l.logger.Debug("rate limiter pruned idle identities",
					"removed", removed,
					"remaining", l.Len(),
				)
			}
		}
	}
}
