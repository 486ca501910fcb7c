package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	var m ShardedMutex
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			m.WithLock("request_interval_guard:claude:acc-1", func() {
				counter++
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutex_KeysSpreadAcrossShards(t *testing.T) {
	shards := make(map[uint64]bool)
	for _, key := range []string{"claude:a1", "claude:a2", "gemini:g1", "openai:o1", "bedrock:b1", "droid:d1"} {
		s := shardFor(key)
		assert.Less(t, s, uint64(shardCount))
		shards[s] = true
	}
	assert.GreaterOrEqual(t, len(shards), 3)
	assert.Equal(t, shardFor("claude:a1"), shardFor("claude:a1"))
}
