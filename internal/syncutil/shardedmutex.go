// Package syncutil holds the locking primitives shared by in-memory stores.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// ShardedRWMutex provides a fixed-size pool of read/write mutexes keyed by
// string. Memory stays bounded regardless of how many keys are seen, at the
// cost of occasional false sharing between keys that hash to the same shard.
// The zero value is ready to use.
type ShardedRWMutex struct {
	shards [shardCount]sync.RWMutex
}

// Lock acquires the write lock for key and returns the matching unlock function.
func (s *ShardedRWMutex) Lock(key string) func() {
	mu := s.shard(key)
	mu.Lock()
	return mu.Unlock
}

// RLock acquires the read lock for key and returns the matching unlock function.
func (s *ShardedRWMutex) RLock(key string) func() {
	mu := s.shard(key)
	mu.RLock()
	return mu.RUnlock
}

// Shard reports which shard key maps to.
func (s *ShardedRWMutex) Shard(key string) int {
	return int(hashKey(key) % shardCount)
}

func (s *ShardedRWMutex) shard(key string) *sync.RWMutex {
	return &s.shards[hashKey(key)%shardCount]
}

func hashKey(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}
