package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process cooldown store.
// Safe for concurrent use by parallel node checks. State is lost on
// restart, so a restart may re-send alerts that were inside the window.
type MemoryStore struct {
	mu        sync.Mutex
	lastSent  map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory cooldown store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Acquire reports whether an alert with this key may be sent now, and
// records the send time if so. Returns true exactly once per window.
func (s *MemoryStore) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now, window)

	if last, ok := s.lastSent[key]; ok && now.Sub(last) < window {
		return false, nil
	}
	s.lastSent[key] = now
	return true, nil
}

// sweep drops entries old enough that they can never suppress again.
// Runs at most once per window to keep Acquire cheap.
func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	if now.Sub(s.lastSweep) < window {
		return
	}
	s.lastSweep = now

	cutoff := 3 * window
	for key, last := range s.lastSent {
		if now.Sub(last) > cutoff {
			delete(s.lastSent, key)
		}
	}
}
