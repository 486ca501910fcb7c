// Package sync holds locking helpers for per-account state.
package sync

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// ShardedMutex serializes work per key without one lock for every account.
// Keys hashing to the same shard share a lock. The zero value is ready to use.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// WithLock runs fn while holding key's shard.
func (m *ShardedMutex) WithLock(key string, fn func()) {
	mu := &m.shards[shardFor(key)]
	mu.Lock()
	defer mu.Unlock()
	fn()
}

func shardFor(key string) uint64 {
	return xxhash.Sum64String(key) % shardCount
}
