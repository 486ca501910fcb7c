package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveScript claims the next admission slot for a key in one step.
//
// KEYS[1] pacing key
// ARGV[1] now (unix ms)
// ARGV[2] min interval ms (0 = next wall-clock second)
// ARGV[3] max wait ms
// ARGV[4] hold ms kept after the slot
// Returns {allowed, wait_ms}. A rejected call leaves the key untouched.
var reserveScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local maxWait = tonumber(ARGV[3])

local target = now
local last = tonumber(redis.call('GET', KEYS[1]))
if last then
  if interval > 0 then
    target = last + interval
  else
    target = (math.floor(last / 1000) + 1) * 1000
  end
  if target < now then
    target = now
  end
end

local wait = target - now
if wait > maxWait then
  return {0, wait}
end

redis.call('SET', KEYS[1], target, 'PX', wait + tonumber(ARGV[4]))
return {1, wait}
`)

// stampScript moves the last admitted instant forward, never back, so a slot
// already reserved by a waiting caller survives an activity stamp.
//
// KEYS[1] pacing key
// ARGV[1] stamp (unix ms)
// ARGV[2] ttl ms
var stampScript = redis.NewScript(`
local stamp = tonumber(ARGV[1])
local last = tonumber(redis.call('GET', KEYS[1]))
if last and last >= stamp then
  return 0
end
redis.call('SET', KEYS[1], stamp, 'PX', ARGV[2])
return 1
`)

// RedisStore keeps pacing slots in Redis so every process shares them.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed pacing store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, now time.Time, minInterval, maxWait time.Duration) (bool, time.Duration, error) {
	res, err := reserveScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		minInterval.Milliseconds(),
		maxWait.Milliseconds(),
		HoldFor(minInterval).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("reserve pacing slot: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("reserve pacing slot: unexpected reply length %d", len(res))
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

func (s *RedisStore) Stamp(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	if err := stampScript.Run(ctx, s.client, []string{key}, now.UnixMilli(), ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("stamp pacing key: %w", err)
	}
	return nil
}
