package cqrs

import (
	"hash/fnv"
	"sync"
)

const defaultLockShards = 64

// keyedMutex provides per-aggregate-identity mutual exclusion. Identities are
// hashed onto a fixed set of shards, so two distinct identities may share a
// lock; that only serializes them, never interleaves one identity's commands.
type keyedMutex struct {
	shards []sync.Mutex
}

func newKeyedMutex(shards int) *keyedMutex {
	if shards <= 0 {
		shards = 1
	}
	return &keyedMutex{shards: make([]sync.Mutex, shards)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	h := fnv.New32a()
	h.Write([]byte(key))
	shard := &k.shards[int(h.Sum32())%len(k.shards)]
	shard.Lock()
	return shard.Unlock
}
