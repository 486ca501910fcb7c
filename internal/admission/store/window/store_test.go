package window

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate/internal/admission/ports"
	"relaygate/pkg/testutil"
)

func storesUnderTest(t *testing.T) map[string]ports.WindowStore {
	_, client := testutil.NewRedis(t)
	mem := NewMemory(time.Minute)
	t.Cleanup(mem.Close)
	return map[string]ports.WindowStore{
		"redis":  NewRedis(client),
		"memory": mem,
	}
}

func TestTryAddEnforcesLimit(t *testing.T) {
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)
	window := 60 * time.Second

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				attempt, err := store.TryAdd(ctx, "k", fmt.Sprintf("req-%d", i), base.Add(time.Duration(i)*time.Second), window, 20)
				require.NoError(t, err)
				require.True(t, attempt.Admitted, "request %d", i)
				assert.Equal(t, i+1, attempt.Count)
			}

			attempt, err := store.TryAdd(ctx, "k", "req-20", base.Add(30*time.Second), window, 20)
			require.NoError(t, err)
			assert.False(t, attempt.Admitted)
			assert.Equal(t, 20, attempt.Count)
			assert.Equal(t, base, attempt.Oldest)

			// the oldest entry leaves the window exactly window after it was added
			attempt, err = store.TryAdd(ctx, "k", "req-20", base.Add(window), window, 20)
			require.NoError(t, err)
			assert.True(t, attempt.Admitted)
			assert.Equal(t, 20, attempt.Count)
			assert.Equal(t, base.Add(time.Second), attempt.Oldest)
		})
	}
}

func TestTryAddUnbounded(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				attempt, err := store.TryAdd(ctx, "errors", fmt.Sprintf("e-%d", i), now, time.Minute, 0)
				require.NoError(t, err)
				assert.True(t, attempt.Admitted)
			}
			attempt, err := store.Count(ctx, "errors", now, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 5, attempt.Count)
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.TryAdd(ctx, "k", "a", now, time.Minute, 10)
			require.NoError(t, err)
			_, err = store.TryAdd(ctx, "k", "b", now.Add(time.Second), time.Minute, 10)
			require.NoError(t, err)

			removed, err := store.Remove(ctx, "k", "a")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = store.Remove(ctx, "k", "a")
			require.NoError(t, err)
			assert.False(t, removed, "second removal finds nothing")

			attempt, err := store.Count(ctx, "k", now.Add(2*time.Second), time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 1, attempt.Count)
			assert.Equal(t, now.Add(time.Second), attempt.Oldest)

			require.NoError(t, store.Clear(ctx, "k"))
			attempt, err = store.Count(ctx, "k", now.Add(2*time.Second), time.Minute)
			require.NoError(t, err)
			assert.Zero(t, attempt.Count)
			assert.True(t, attempt.Oldest.IsZero())
		})
	}
}

func TestRemoveMatchesSlotTag(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.TryAdd(ctx, "k", "req#1", now, time.Minute, 10)
			require.NoError(t, err)
			_, err = store.TryAdd(ctx, "k", "req#2", now.Add(time.Second), time.Minute, 10)
			require.NoError(t, err)
			_, err = store.TryAdd(ctx, "k", "req-other#3", now.Add(2*time.Second), time.Minute, 10)
			require.NoError(t, err)

			removed, err := store.Remove(ctx, "k", "req")
			require.NoError(t, err)
			assert.True(t, removed)

			attempt, err := store.Count(ctx, "k", now.Add(3*time.Second), time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 2, attempt.Count)
			assert.Equal(t, now.Add(time.Second), attempt.Oldest, "the oldest tagged entry goes first")

			removed, err = store.Remove(ctx, "k", "req")
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = store.Remove(ctx, "k", "req")
			require.NoError(t, err)
			assert.False(t, removed, "req-other is a different request id")
		})
	}
}

func TestCountEvictsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.TryAdd(ctx, "k", "a", now, time.Minute, 10)
			require.NoError(t, err)
			attempt, err := store.Count(ctx, "k", now.Add(2*time.Minute), time.Minute)
			require.NoError(t, err)
			assert.Zero(t, attempt.Count)
		})
	}
}

func TestRedisBackendErrors(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	store := NewRedis(client)
	mr.SetError("READONLY")

	_, err := store.TryAdd(ctx, "k", "a", time.Now(), time.Minute, 1)
	assert.Error(t, err)
	_, err = store.Count(ctx, "k", time.Now(), time.Minute)
	assert.Error(t, err)
	_, err = store.Remove(ctx, "k", "a")
	assert.Error(t, err)
}
