package window

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"relaygate/internal/admission/models"
	"relaygate/internal/admission/store/fallback"
)

type entry struct {
	member string
	at     int64
}

type bucket struct {
	entries []entry
	ttl     time.Duration
}

// InMemoryStore mirrors RedisStore on a process-local cache.
type InMemoryStore struct {
	cache *fallback.Cache[bucket]
}

// NewMemory constructs a memory window store with its own cache.
func NewMemory(sweepInterval time.Duration) *InMemoryStore {
	return &InMemoryStore{cache: fallback.New(fallback.WithSweepInterval[bucket](sweepInterval))}
}

// Close stops the underlying cache janitor.
func (s *InMemoryStore) Close() {
	s.cache.Close()
}

func (s *InMemoryStore) TryAdd(_ context.Context, key, member string, now time.Time, window time.Duration, limit int) (*models.WindowAttempt, error) {
	attempt := &models.WindowAttempt{}
	nowMs := now.UnixMilli()
	s.cache.Update(key, func(current bucket, _ bool) (bucket, time.Duration, bool) {
		live := evict(current.entries, nowMs-window.Milliseconds())
		if limit <= 0 || len(live) < limit {
			live = slices.DeleteFunc(live, func(e entry) bool { return e.member == member })
			live = append(live, entry{member: member, at: nowMs})
			slices.SortStableFunc(live, func(a, b entry) int { return cmp.Compare(a.at, b.at) })
			attempt.Admitted = true
		}
		attempt.Count = len(live)
		if len(live) > 0 {
			attempt.Oldest = msToTime(live[0].at)
		}
		ttl := window + time.Second
		return bucket{entries: live, ttl: ttl}, ttl, true
	})
	return attempt, nil
}

func (s *InMemoryStore) Remove(_ context.Context, key, member string) (bool, error) {
	removed := false
	s.cache.Update(key, func(current bucket, found bool) (bucket, time.Duration, bool) {
		if !found {
			return current, 0, false
		}
		i := slices.IndexFunc(current.entries, func(e entry) bool { return matchesSlot(e.member, member) })
		if i < 0 {
			return current, 0, false
		}
		removed = true
		next := slices.Delete(slices.Clone(current.entries), i, i+1)
		return bucket{entries: next, ttl: current.ttl}, current.ttl, true
	})
	return removed, nil
}

func (s *InMemoryStore) Count(_ context.Context, key string, now time.Time, window time.Duration) (*models.WindowAttempt, error) {
	current, _ := s.cache.Get(key)
	live := evict(current.entries, now.Add(-window).UnixMilli())
	attempt := &models.WindowAttempt{Count: len(live)}
	if len(live) > 0 {
		attempt.Oldest = msToTime(live[0].at)
	}
	return attempt, nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// evict returns a copy of entries scored strictly after cutoff.
func evict(entries []entry, cutoff int64) []entry {
	live := make([]entry, 0, len(entries)+1)
	for _, e := range entries {
		if e.at > cutoff {
			live = append(live, e)
		}
	}
	return live
}

func matchesSlot(member, tag string) bool {
	return member == tag || strings.HasPrefix(member, tag+models.SlotSeparator)
}
