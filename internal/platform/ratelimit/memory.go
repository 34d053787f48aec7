package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryLimiter struct {
	cfg Config
	now func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemory keeps hit timestamps in process. Counts are per replica.
func NewMemory(cfg Config) Limiter {
	return newMemory(cfg, time.Now)
}

func newMemory(cfg Config, now func() time.Time) *memoryLimiter {
	return &memoryLimiter{cfg: cfg.normalized(), now: now, hits: map[string][]time.Time{}}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.cfg.Max {
		l.hits[key] = kept
		return Decision{
			Allowed:    false,
			Limit:      l.cfg.Max,
			RetryAfter: kept[0].Add(l.cfg.Window).Sub(now),
		}, nil
	}

	kept = append(kept, now)
	l.hits[key] = kept
	l.sweepLocked(cutoff)
	return Decision{Allowed: true, Limit: l.cfg.Max, Remaining: l.cfg.Max - len(kept)}, nil
}

// sweepLocked drops keys whose newest hit has aged out.
func (l *memoryLimiter) sweepLocked(cutoff time.Time) {
	if len(l.hits) < 1024 {
		return
	}
	for k, ts := range l.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.hits, k)
		}
	}
}
