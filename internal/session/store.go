// Package session holds the per-session state stores: transient context,
// authentication records, and conversation history. Each store is sharded by
// session id so two different sessions never contend on the same lock.
package session

import (
	"hash/fnv"
	"sync"
)

const shardCount = 16

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// shardedStore is a concurrent map keyed by session id. Mutations of a stored
// value go through update so the read-modify-write happens under the shard lock.
type shardedStore[V any] struct {
	shards [shardCount]shard[V]
}

func newShardedStore[V any]() *shardedStore[V] {
	s := &shardedStore[V]{}
	for i := range s.shards {
		s.shards[i].items = make(map[string]V)
	}
	return s
}

func (s *shardedStore[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}

func (s *shardedStore[V]) get(key string) (V, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.items[key]
	return v, ok
}

func (s *shardedStore[V]) set(key string, v V) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.items[key] = v
}

func (s *shardedStore[V]) delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.items, key)
}

// update applies fn to the current value under the shard lock. fn receives the
// stored value (or the zero value) and whether it existed; it returns the value
// to store and whether to keep the entry.
func (s *shardedStore[V]) update(key string, fn func(v V, ok bool) (V, bool)) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	next, keep := fn(sh.items[key], hasKey(sh.items, key))
	if keep {
		sh.items[key] = next
	} else {
		delete(sh.items, key)
	}
}

func (s *shardedStore[V]) keys() []string {
	var out []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for k := range sh.items {
			out = append(out, k)
		}
		sh.mu.RUnlock()
	}
	return out
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}
