package sesh

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/dustin/go-humanize"
)

// MaxMemcachedValueBytes is the stock memcached item size ceiling (1 MiB).
// MemcachedStore surfaces ErrBackend with a humanized size in its message
// rather than letting the client fail the Set opaquely.
const MaxMemcachedValueBytes = 1024 * 1024

// MemcachedStore implements SessionStore against memcached. Unlike Redis,
// memcached has no notion of "list keys" or pipelining the way this package
// needs it, so MemcachedStore.Create relies purely on the Add command's
// atomic not-exists semantics for collision detection.
type MemcachedStore[T any] struct {
	client *memcache.Client
	codec  Codec
	rngStore
}

// MemcachedStoreOption configures a MemcachedStore at construction time.
type MemcachedStoreOption[T any] func(*MemcachedStore[T])

// WithMemcachedCodec overrides DefaultCodec.
func WithMemcachedCodec[T any](codec Codec) MemcachedStoreOption[T] {
	return func(s *MemcachedStore[T]) { s.codec = codec }
}

// NewMemcachedStore builds a gomemcache client over servers; gomemcache
// spreads keys across them with its default ServerList hashing.
func NewMemcachedStore[T any](servers []string, opts ...MemcachedStoreOption[T]) *MemcachedStore[T] {
	s := &MemcachedStore[T]{
		client: memcache.New(servers...),
		codec:  DefaultCodec,
	}
	s.rngStore.init()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// calculateMemcachedExpiration converts an absolute ttl into the delta- or
// absolute-Unix-timestamp form the memcached wire protocol wants: deltas
// beyond 30 days are indistinguishable from absolute timestamps to the
// server, so anything past that threshold must be sent as a Unix second
// count instead. A ttl at or before now maps to -1 (the server treats a
// negative expiration as already expired) and a sub-second delta maps to
// 1, since 0 would mean "never expire".
func calculateMemcachedExpiration(now, ttl time.Time) int32 {
	const maxDelta = 30 * 24 * time.Hour
	duration := ttl.Sub(now)
	if duration > maxDelta {
		return int32(ttl.Unix())
	}
	if duration <= 0 {
		return -1
	}
	if duration < time.Second {
		return 1
	}
	return int32(duration.Seconds())
}

func (s *MemcachedStore[T]) encode(data T) ([]byte, error) {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return nil, errWrapSerde(err)
	}
	if len(encoded) > MaxMemcachedValueBytes {
		return nil, NewStoreError("encoded session (%s) exceeds memcached's %s item limit",
			humanize.Bytes(uint64(len(encoded))), humanize.Bytes(MaxMemcachedValueBytes))
	}
	return encoded, nil
}

func (s *MemcachedStore[T]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	encoded, err := s.encode(data)
	if err != nil {
		return SessionKey{}, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		key, err := GenerateKeyFrom(s.reader())
		if err != nil {
			return SessionKey{}, NewStoreError("generate key: %v", err)
		}

		err = s.client.Add(&memcache.Item{
			Key:        key.Encode(),
			Value:      encoded,
			Expiration: calculateMemcachedExpiration(time.Now(), ttl),
		})
		if err == memcache.ErrNotStored {
			continue
		}
		if err != nil {
			return SessionKey{}, errWrapBackend(err)
		}
		return key, nil
	}
	return SessionKey{}, ErrMaxIterationsReached
}

func (s *MemcachedStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	item, err := s.client.Get(key.Encode())
	if err == memcache.ErrCacheMiss {
		return Record[T]{}, false, nil
	}
	if err != nil {
		return Record[T]{}, false, errWrapBackend(err)
	}

	var data T
	if err := s.codec.Decode(item.Value, &data); err != nil {
		return Record[T]{}, false, errWrapSerde(err)
	}

	// memcached doesn't return absolute expirations on Get; without a
	// second round trip to ask for it, the best available TTL is the
	// default horizon, which matches the RedisStore fallback.
	return Record[T]{Data: data, TTL: time.Now().Add(DefaultSessionExpiry)}, true, nil
}

func (s *MemcachedStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	encoded, err := s.encode(data)
	if err != nil {
		return err
	}
	err = s.client.Set(&memcache.Item{
		Key:        key.Encode(),
		Value:      encoded,
		Expiration: calculateMemcachedExpiration(time.Now(), ttl),
	})
	if err != nil {
		return errWrapBackend(err)
	}
	return nil
}

func (s *MemcachedStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	err := s.client.Touch(key.Encode(), calculateMemcachedExpiration(time.Now(), ttl))
	if err == memcache.ErrCacheMiss {
		return nil
	}
	if err != nil {
		return errWrapBackend(err)
	}
	return nil
}

func (s *MemcachedStore[T]) Delete(ctx context.Context, key SessionKey) error {
	err := s.client.Delete(key.Encode())
	if err != nil && err != memcache.ErrCacheMiss {
		return errWrapBackend(err)
	}
	return nil
}

var _ SessionStore[struct{}] = (*MemcachedStore[struct{}])(nil)
var _ SessionStoreRng = (*MemcachedStore[struct{}])(nil)
