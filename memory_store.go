package sesh

import (
	"context"
	"sync"
	"time"
)

// memoryShardCount is the number of independent lock domains MemoryStore
// splits its keyspace across, so unrelated keys never contend on the same
// mutex.
const memoryShardCount = 32

type memoryShard[T any] struct {
	mu   sync.RWMutex
	data map[SessionKey]Record[T]
}

// MemoryStore is a sharded, in-process implementation of SessionStore. It
// has no durability across process restarts; expired entries are pruned
// lazily at Load time.
type MemoryStore[T any] struct {
	shards [memoryShardCount]*memoryShard[T]
	rngStore
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore[T any]() *MemoryStore[T] {
	s := &MemoryStore[T]{}
	s.rngStore.init()
	for i := range s.shards {
		s.shards[i] = &memoryShard[T]{data: make(map[SessionKey]Record[T])}
	}
	return s
}

func (s *MemoryStore[T]) shardFor(key SessionKey) *memoryShard[T] {
	// Any cheap, well-distributed fold over the key's bits works here: the
	// shards only need to spread load, not resist adversarial input, since
	// the key itself is already cryptographically random.
	idx := (key.hi ^ key.lo) % memoryShardCount
	return s.shards[idx]
}

func (s *MemoryStore[T]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		key, err := GenerateKeyFrom(s.reader())
		if err != nil {
			return SessionKey{}, NewStoreError("generate key: %v", err)
		}
		shard := s.shardFor(key)

		shard.mu.Lock()
		if _, exists := shard.data[key]; exists {
			shard.mu.Unlock()
			continue
		}
		shard.data[key] = Record[T]{Data: data, TTL: ttl}
		shard.mu.Unlock()
		return key, nil
	}
	return SessionKey{}, ErrMaxIterationsReached
}

func (s *MemoryStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	shard := s.shardFor(key)

	shard.mu.RLock()
	rec, ok := shard.data[key]
	shard.mu.RUnlock()
	if !ok {
		return Record[T]{}, false, nil
	}
	if rec.Expired(time.Now()) {
		shard.mu.Lock()
		delete(shard.data, key)
		shard.mu.Unlock()
		return Record[T]{}, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	shard := s.shardFor(key)
	shard.mu.Lock()
	shard.data[key] = Record[T]{Data: data, TTL: ttl}
	shard.mu.Unlock()
	return nil
}

func (s *MemoryStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	rec, ok := shard.data[key]
	if !ok {
		return nil
	}
	if rec.Expired(time.Now()) {
		delete(shard.data, key)
		return nil
	}
	rec.TTL = ttl
	shard.data[key] = rec
	return nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, key SessionKey) error {
	shard := s.shardFor(key)
	shard.mu.Lock()
	delete(shard.data, key)
	shard.mu.Unlock()
	return nil
}

// Len returns the total number of records across all shards, including any
// not yet lazily evicted. Useful for tests and monitoring.
func (s *MemoryStore[T]) Len() int {
	n := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		n += len(shard.data)
		shard.mu.RUnlock()
	}
	return n
}

var _ SessionStore[struct{}] = (*MemoryStore[struct{}])(nil)
var _ SessionStoreRng = (*MemoryStore[struct{}])(nil)
