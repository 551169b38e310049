package velocity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/scamsniper/internal/cache"
	"github.com/opensource-finance/scamsniper/internal/domain"
)

type failingCache struct {
	domain.Cache
}

func (failingCache) IncrementCounter(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestLimiter(t *testing.T) {
	lru := cache.NewLRUCache(100)
	defer lru.Close()

	limiter := NewLimiter(lru, 3, time.Minute)
	ctx := context.Background()

	t.Run("AllowsUpToLimit", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			d, err := limiter.Allow(ctx, "10.0.0.1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !d.Allowed {
				t.Fatalf("request %d should be allowed", i)
			}
			if d.Remaining != 3-i {
				t.Errorf("request %d: expected remaining %d, got %d", i, 3-i, d.Remaining)
			}
		}

		d, _ := limiter.Allow(ctx, "10.0.0.1")
		if d.Allowed {
			t.Error("fourth request should be rejected")
		}
		if d.Remaining != 0 || d.Count != 4 {
			t.Errorf("unexpected decision: %+v", d)
		}
	})

	t.Run("ClientsAreIndependent", func(t *testing.T) {
		d, _ := limiter.Allow(ctx, "10.0.0.2")
		if !d.Allowed || d.Count != 1 {
			t.Errorf("expected fresh counter for new client, got %+v", d)
		}
	})

	t.Run("RequiresClient", func(t *testing.T) {
		if _, err := limiter.Allow(ctx, ""); err == nil {
			t.Error("expected error for empty client")
		}
	})
}

func TestLimiterDisabled(t *testing.T) {
	for _, l := range []*Limiter{
		NewLimiter(cache.NewLRUCache(10), 0, time.Minute),
		NewLimiter(nil, 10, time.Minute),
	} {
		if l.Enabled() {
			t.Error("expected limiter to be disabled")
		}
		d, err := l.Allow(context.Background(), "client")
		if err != nil || !d.Allowed {
			t.Errorf("disabled limiter must allow: %+v %v", d, err)
		}
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter(failingCache{}, 1, time.Minute)

	d, err := l.Allow(context.Background(), "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("counter failure must not reject requests")
	}
}
