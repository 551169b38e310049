// Package velocity provides request-rate limiting on top of cache counters.
package velocity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Decision is the outcome of one rate check.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int
	Window    time.Duration
}

// Limiter counts requests per client in fixed windows.
// With a Redis-backed cache the counters are shared across instances.
type Limiter struct {
	cache  domain.Cache
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter. A non-positive limit disables limiting.
func NewLimiter(cache domain.Cache, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{cache: cache, limit: limit, window: window}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0 && l.cache != nil
}

// Allow counts one request for client. Counter failures fail open.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	if client == "" {
		return Decision{}, fmt.Errorf("client key is required")
	}
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	count, err := l.cache.IncrementCounter(ctx, "rate:"+client, l.window)
	if err != nil {
		slog.Warn("rate counter unavailable, allowing request", "client", client, "error", err)
		return Decision{Allowed: true, Limit: l.limit, Window: l.window}, nil
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Count:     count,
		Limit:     l.limit,
		Remaining: remaining,
		Window:    l.window,
	}, nil
}
