package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	GeneralLimit = 100
	AuthLimit    = 10
	Window       = 15 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store keeps one token bucket per identity. A bucket holds limit tokens and
// refills evenly over window.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	window   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewStore(limit int, window time.Duration) *Store {
	interval := window / time.Duration(limit)
	return &Store{
		entries:  make(map[string]*entry),
		limit:    rate.Every(interval),
		burst:    limit,
		window:   window,
		interval: interval,
		now:      time.Now,
	}
}

// Allow consumes one token for key and reports whether the request may proceed.
func (s *Store) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RetryAfter is the advertised wait for a rejected client.
func (s *Store) RetryAfter() time.Duration {
	return s.interval
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops identities idle for longer than the window; their buckets would be full again.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.window)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
