package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process CounterStore for tests and single-instance
// deployments. Counters for multiple replicas will not converge; use
// RedisStore for a shared budget.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter

	// now is swappable in tests.
	now func() time.Time
}

type memoryCounter struct {
	count  int64
	expiry time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

// Incr implements CounterStore. Expired windows are replaced in place, so
// the map never holds more than one counter per key.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.After(c.expiry) {
		c = &memoryCounter{expiry: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

// Cleanup drops expired counters. Call periodically from a janitor goroutine
// when key cardinality is high.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, c := range s.counters {
		if now.After(c.expiry) {
			delete(s.counters, k)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
