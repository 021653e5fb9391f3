package sesh

import (
	"context"
	"sync"
	"time"
)

// CachingStore composes a fast Cache in front of a slower, authoritative
// Store. Reads prefer Cache and fall through to Store on a miss,
// repopulating Cache along the way; Update/UpdateTTL/Delete write to Store
// and Cache in parallel, so the composite's latency is the max of the two
// rather than their sum. A Store failure always fails the operation. A Cache
// failure is swallowed by Create and Load -- Store is still the source of
// truth -- but fails Update, UpdateTTL and Delete.
type CachingStore[T any, Cache SessionStore[T], Store SessionStore[T]] struct {
	cache Cache
	store Store
}

// NewCachingStore pairs cache in front of store.
func NewCachingStore[T any, Cache SessionStore[T], Store SessionStore[T]](cache Cache, store Store) *CachingStore[T, Cache, Store] {
	return &CachingStore[T, Cache, Store]{cache: cache, store: store}
}

func (s *CachingStore[T, Cache, Store]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	key, err := s.store.Create(ctx, data, ttl)
	if err != nil {
		return SessionKey{}, err
	}
	_ = s.cache.Update(ctx, key, data, ttl)
	return key, nil
}

func (s *CachingStore[T, Cache, Store]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	if rec, ok, err := s.cache.Load(ctx, key); err == nil && ok {
		return rec, true, nil
	}

	rec, ok, err := s.store.Load(ctx, key)
	if err != nil {
		return Record[T]{}, false, err
	}
	if !ok {
		return Record[T]{}, false, nil
	}
	_ = s.cache.Update(ctx, key, rec.Data, rec.TTL)
	return rec, true, nil
}

// runParallel runs store and cache concurrently and waits for both, so the
// composite's latency is the max of the two rather than their sum.
func runParallel(store, cache func() error) (storeErr, cacheErr error) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		storeErr = store()
	}()
	go func() {
		defer wg.Done()
		cacheErr = cache()
	}()
	wg.Wait()
	return storeErr, cacheErr
}

func (s *CachingStore[T, Cache, Store]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	storeErr, cacheErr := runParallel(
		func() error { return s.store.Update(ctx, key, data, ttl) },
		func() error { return s.cache.Update(ctx, key, data, ttl) },
	)
	if storeErr != nil {
		return storeErr
	}
	return cacheErr
}

func (s *CachingStore[T, Cache, Store]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	storeErr, cacheErr := runParallel(
		func() error { return s.store.UpdateTTL(ctx, key, ttl) },
		func() error { return s.cache.UpdateTTL(ctx, key, ttl) },
	)
	if storeErr != nil {
		return storeErr
	}
	return cacheErr
}

func (s *CachingStore[T, Cache, Store]) Delete(ctx context.Context, key SessionKey) error {
	storeErr, cacheErr := runParallel(
		func() error { return s.store.Delete(ctx, key) },
		func() error { return s.cache.Delete(ctx, key) },
	)
	if storeErr != nil {
		return storeErr
	}
	return cacheErr
}

var _ SessionStore[struct{}] = (*CachingStore[struct{}, SessionStore[struct{}], SessionStore[struct{}]])(nil)
