package scanguard

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard decides whether a scanned QR payload should be forwarded.
// Acquire returns true for the first scan of key inside the window and
// false for repeats until the window has passed.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// Purger is implemented by guards that keep expired entries around.
type Purger interface {
	Purge() int
}

// New returns a Redis-backed guard when client is non-nil, so that several
// server instances share one window, and an in-memory guard otherwise.
func New(client *redis.Client, window time.Duration) Guard {
	if client != nil {
		return NewRedisGuard(client, window)
	}
	return NewMemoryGuard(window, nil)
}

// MemoryGuard keeps last-accepted times in a map.
type MemoryGuard struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewMemoryGuard creates a guard; now defaults to time.Now.
func NewMemoryGuard(window time.Duration, now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{
		window: window,
		seen:   make(map[string]time.Time),
		now:    now,
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.seen[key]; ok && now.Sub(last) < g.window {
		return false, nil
	}
	g.seen[key] = now
	return true, nil
}

// Purge drops entries whose window has passed and returns how many.
func (g *MemoryGuard) Purge() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for k, t := range g.seen {
		if now.Sub(t) >= g.window {
			delete(g.seen, k)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// RedisGuard uses SET NX PX; the key expires with the window so there is
// nothing to purge.
type RedisGuard struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedisGuard(client *redis.Client, window time.Duration) *RedisGuard {
	return &RedisGuard{client: client, window: window, prefix: "checkin:scan:"}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, g.window).Result()
}
