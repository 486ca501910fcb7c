package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"relaygate/internal/admission/models"
	"relaygate/pkg/platform/sentinel"
)

const (
	scanCount = 100
	// maxScanIterations bounds a prefix scan against a huge or corrupted keyspace.
	maxScanIterations = 1000
)

// applyScript updates named fields of an existing hash, optionally guarded by
// the current values of other fields.
//
// KEYS[1] account hash
// ARGV[1] number of guards n
// ARGV[2..2n+1] pairs of guard field, expected value ("" matches a missing field)
// ARGV[2n+2..] triples of field, op ("s" set / "d" delete), value
// Returns -1 when the hash is missing, 0 when a guard failed, 1 when applied.
var applyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local guards = tonumber(ARGV[1])
for g = 0, guards - 1 do
  local current = redis.call('HGET', KEYS[1], ARGV[2 + g * 2])
  if not current then
    current = ''
  end
  if current ~= ARGV[3 + g * 2] then
    return 0
  end
end
local i = 2 + guards * 2
while i <= #ARGV do
  if ARGV[i + 1] == 's' then
    redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 2])
  else
    redis.call('HDEL', KEYS[1], ARGV[i])
  end
  i = i + 3
end
return 1
`)

// RedisStore reads and writes account records kept as Redis hashes.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed account registry.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key models.AccountKey) (*models.AccountRecord, error) {
	fields, err := s.client.HGetAll(ctx, key.RegistryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: fields}, nil
}

// Find looks the id up in every partition, in enumeration order.
func (s *RedisStore) Find(ctx context.Context, accountID string) (*models.AccountRecord, error) {
	for _, accountType := range models.AllAccountTypes() {
		record, err := s.Get(ctx, models.AccountKey{Type: accountType, ID: accountID})
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return record, nil
	}
	return nil, sentinel.ErrNotFound
}

// Save writes a whole record. Used for provisioning, never by admission paths.
func (s *RedisStore) Save(ctx context.Context, record *models.AccountRecord) error {
	if record == nil || len(record.Fields) == 0 {
		return fmt.Errorf("account record with fields is required")
	}
	key := models.AccountKey{Type: record.Type, ID: record.ID}
	values := make([]any, 0, len(record.Fields)*2)
	for name, v := range record.Fields {
		values = append(values, name, v)
	}
	if err := s.client.HSet(ctx, key.RegistryKey(), values...).Err(); err != nil {
		return fmt.Errorf("save account %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) UpdateFields(ctx context.Context, key models.AccountKey, fields map[string]*string) error {
	_, err := s.apply(ctx, key, nil, fields)
	return err
}

func (s *RedisStore) CompareAndUpdate(ctx context.Context, key models.AccountKey, expected map[string]string, fields map[string]*string) (bool, error) {
	return s.apply(ctx, key, expected, fields)
}

func (s *RedisStore) apply(ctx context.Context, key models.AccountKey, expected map[string]string, fields map[string]*string) (bool, error) {
	args := []any{len(expected)}
	for _, name := range slices.Sorted(maps.Keys(expected)) {
		args = append(args, name, expected[name])
	}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if v := fields[name]; v != nil {
			args = append(args, name, "s", *v)
		} else {
			args = append(args, name, "d", "")
		}
	}

	res, err := applyScript.Run(ctx, s.client, []string{key.RegistryKey()}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("update account %s: %w", key, err)
	}
	switch res {
	case -1:
		return false, sentinel.ErrNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

// ListAccountIDs scans the partition prefix. The scan stops after
// maxScanIterations cursors even if Redis has not finished.
func (s *RedisStore) ListAccountIDs(ctx context.Context, accountType models.AccountType) ([]string, error) {
	if !accountType.IsValid() {
		return nil, fmt.Errorf("unknown account type %q", accountType)
	}
	prefix := accountType.Prefix()
	seen := make(map[string]struct{})
	var cursor uint64

	for i := 0; i < maxScanIterations; i++ {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s accounts: %w", accountType, err)
		}
		for _, k := range keys {
			if id := strings.TrimPrefix(k, prefix); id != "" {
				seen[id] = struct{}{}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
