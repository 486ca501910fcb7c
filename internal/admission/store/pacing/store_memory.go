package pacing

import (
	"context"
	"time"

	"relaygate/internal/admission/store/fallback"
)

// InMemoryStore applies the reservation rules to a process-local cache.
// Updates are atomic within this process only.
type InMemoryStore struct {
	cache *fallback.Cache[int64]
}

// NewMemory wraps cache, which the caller owns and closes.
func NewMemory(cache *fallback.Cache[int64]) *InMemoryStore {
	return &InMemoryStore{cache: cache}
}

func (s *InMemoryStore) Reserve(_ context.Context, key string, now time.Time, minInterval, maxWait time.Duration) (bool, time.Duration, error) {
	var (
		allowed bool
		wait    time.Duration
	)
	nowMs := now.UnixMilli()
	s.cache.Update(key, func(last int64, found bool) (int64, time.Duration, bool) {
		target := nowMs
		if found {
			target = nextSlot(last, minInterval.Milliseconds())
			if target < nowMs {
				target = nowMs
			}
		}
		wait = time.Duration(target-nowMs) * time.Millisecond
		if wait > maxWait {
			return last, 0, false
		}
		allowed = true
		return target, wait + HoldFor(minInterval), true
	})
	return allowed, wait, nil
}

func (s *InMemoryStore) Stamp(_ context.Context, key string, now time.Time, ttl time.Duration) error {
	stamp := now.UnixMilli()
	s.cache.Update(key, func(last int64, found bool) (int64, time.Duration, bool) {
		if found && last >= stamp {
			return last, 0, false
		}
		return stamp, ttl, true
	})
	return nil
}

// nextSlot returns the earliest instant (ms) admissible after last.
func nextSlot(last, intervalMs int64) int64 {
	if intervalMs > 0 {
		return last + intervalMs
	}
	return (last/1000 + 1) * 1000
}

// HoldFor is how long a reserved slot is kept after its instant so the next
// caller still sees it.
func HoldFor(minInterval time.Duration) time.Duration {
	hold := minInterval
	if hold < time.Second {
		hold = time.Second
	}
	return hold + 5*time.Second
}
