package sesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a MemoryStore and counts Load calls, so tests can
// assert a cache hit never reaches the store of record.
type countingStore[T any] struct {
	*MemoryStore[T]
	loads int
}

func newCountingStore[T any]() *countingStore[T] {
	return &countingStore[T]{MemoryStore: NewMemoryStore[T]()}
}

func (s *countingStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	s.loads++
	return s.MemoryStore.Load(ctx, key)
}

func TestCachingStoreCreatePopulatesCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStore[string]()
	store := newCountingStore[string]()
	cs := NewCachingStore[string, *MemoryStore[string], *countingStore[string]](cache, store)

	key, err := cs.Create(ctx, "hello", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, ok, err := cache.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Data)
}

func TestCachingStoreLoadHitsCacheFirst(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStore[string]()
	store := newCountingStore[string]()
	cs := NewCachingStore[string, *MemoryStore[string], *countingStore[string]](cache, store)

	key, err := cs.Create(ctx, "hello", time.Now().Add(time.Hour))
	require.NoError(t, err)

	store.loads = 0
	_, ok, err := cs.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, store.loads, "cache hit must not reach the store of record")
}

func TestCachingStoreLoadFallsThroughOnCacheMissAndRepopulates(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStore[string]()
	store := NewMemoryStore[string]()
	cs := NewCachingStore[string, *MemoryStore[string], *MemoryStore[string]](cache, store)

	key, err := store.Create(ctx, "direct", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, ok, err := cs.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "direct", rec.Data)

	cachedRec, ok, err := cache.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "Load must repopulate the cache on a miss")
	assert.Equal(t, "direct", cachedRec.Data)
}

type failingStore[T any] struct{}

var errFailingStore = errors.New("boom")

func (failingStore[T]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	return SessionKey{}, errFailingStore
}
func (failingStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	return Record[T]{}, false, errFailingStore
}
func (failingStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	return errFailingStore
}
func (failingStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	return errFailingStore
}
func (failingStore[T]) Delete(ctx context.Context, key SessionKey) error { return errFailingStore }

func TestCachingStoreStoreErrorPropagates(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStore[string]()
	store := failingStore[string]{}
	cs := NewCachingStore[string, *MemoryStore[string], failingStore[string]](cache, store)

	_, err := cs.Create(ctx, "x", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, errFailingStore)
}

func TestCachingStoreCacheErrorDoesNotFailRead(t *testing.T) {
	ctx := context.Background()
	cache := failingStore[string]{}
	store := NewMemoryStore[string]()
	cs := NewCachingStore[string, failingStore[string], *MemoryStore[string]](cache, store)

	key, err := store.Create(ctx, "direct", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, ok, err := cs.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "direct", rec.Data)
}

// slowStore sleeps delay before delegating every call to MemoryStore, so
// tests can observe whether two stores were driven concurrently or in
// sequence.
type slowStore[T any] struct {
	*MemoryStore[T]
	delay time.Duration
}

func newSlowStore[T any](delay time.Duration) *slowStore[T] {
	return &slowStore[T]{MemoryStore: NewMemoryStore[T](), delay: delay}
}

func (s *slowStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	time.Sleep(s.delay)
	return s.MemoryStore.Update(ctx, key, data, ttl)
}

func (s *slowStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	time.Sleep(s.delay)
	return s.MemoryStore.UpdateTTL(ctx, key, ttl)
}

func (s *slowStore[T]) Delete(ctx context.Context, key SessionKey) error {
	time.Sleep(s.delay)
	return s.MemoryStore.Delete(ctx, key)
}

func TestCachingStoreUpdateRunsStoreAndCacheInParallel(t *testing.T) {
	ctx := context.Background()
	delay := 50 * time.Millisecond
	cache := newSlowStore[string](delay)
	store := newSlowStore[string](delay)
	cs := NewCachingStore[string, *slowStore[string], *slowStore[string]](cache, store)

	key, err := store.Create(ctx, "hello", time.Now().Add(time.Hour))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, cs.Update(ctx, key, "updated", time.Now().Add(time.Hour)))
	elapsed := time.Since(start)

	// Sequential execution would take at least 2*delay; parallel execution
	// should stay well under that, close to a single delay.
	assert.Less(t, elapsed, 2*delay, "Update should run store and cache in parallel, not sequentially")
}

var _ SessionStore[struct{}] = failingStore[struct{}]{}
