package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the windows in process memory. Each instance of the
// service enforces its own limits; use RedisStore when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]time.Time)}
}

func (s *MemoryStore) Take(_ context.Context, key string, now time.Time, rule Rule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[key][:0]
	for _, ts := range s.entries[key] {
		if now.Sub(ts) < rule.Window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rule.MaxRequests {
		s.entries[key] = kept
		return false, nil
	}
	s.entries[key] = append(kept, now)
	return true, nil
}

// Sweep drops keys whose newest request is older than maxWindow.
func (s *MemoryStore) Sweep(now time.Time, maxWindow time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, stamps := range s.entries {
		if len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) >= maxWindow {
			delete(s.entries, key)
		}
	}
}
