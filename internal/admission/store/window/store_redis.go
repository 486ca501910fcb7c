package window

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"relaygate/internal/admission/models"
)

// tryAddScript evicts expired entries and conditionally adds one in a single step.
//
// KEYS[1] window key
// ARGV[1] now (unix ms)
// ARGV[2] window ms
// ARGV[3] limit (<= 0 = unbounded)
// ARGV[4] member
// Returns {admitted, count, oldest_ms}.
var tryAddScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local admitted = 0
if limit <= 0 or count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  redis.call('PEXPIRE', KEYS[1], window + 1000)
  count = redis.call('ZCARD', KEYS[1])
  admitted = 1
end

local oldest = 0
local first = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {admitted, count, oldest}
`)

// removeScript deletes the oldest entry matching a slot tag.
//
// KEYS[1] window key
// ARGV[1] member or request id
// ARGV[2] tag separator
var removeScript = redis.NewScript(`
local prefix = ARGV[1] .. ARGV[2]
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, m in ipairs(members) do
  if m == ARGV[1] or string.sub(m, 1, #prefix) == prefix then
    redis.call('ZREM', KEYS[1], m)
    return 1
  end
end
return 0
`)

// RedisStore keeps sliding windows as sorted sets scored by unix ms.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed window store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) TryAdd(ctx context.Context, key, member string, now time.Time, window time.Duration, limit int) (*models.WindowAttempt, error) {
	values, err := tryAddScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("window try add: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("window try add: unexpected reply length %d", len(values))
	}
	return &models.WindowAttempt{
		Admitted: values[0] == 1,
		Count:    int(values[1]),
		Oldest:   msToTime(values[2]),
	}, nil
}

func (s *RedisStore) Remove(ctx context.Context, key, member string) (bool, error) {
	removed, err := removeScript.Run(ctx, s.client, []string{key}, member, models.SlotSeparator).Int64()
	if err != nil {
		return false, fmt.Errorf("window remove: %w", err)
	}
	return removed > 0, nil
}

func (s *RedisStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (*models.WindowAttempt, error) {
	var (
		card  *redis.IntCmd
		first *redis.ZSliceCmd
	)
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		card = pipe.ZCard(ctx, key)
		first = pipe.ZRangeWithScores(ctx, key, 0, 0)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("window count: %w", err)
	}

	attempt := &models.WindowAttempt{Count: int(card.Val())}
	if entries := first.Val(); len(entries) > 0 {
		attempt.Oldest = msToTime(int64(entries[0].Score))
	}
	return attempt, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("window clear: %w", err)
	}
	return nil
}

func msToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
