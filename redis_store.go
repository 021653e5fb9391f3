package sesh

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionExpiry is the TTL RedisStore assigns to a record that has no
// TTL of its own when it's read back (see Load), the TTL MemcachedStore.Load
// reports, and the default Config.SessionExpiry (see NewConfig).
const DefaultSessionExpiry = 14 * 24 * time.Hour

// DefaultRedisKeyPrefix is prepended to every session key's base64
// encoding to form the Redis key.
const DefaultRedisKeyPrefix = "session_"

// RedisClient is the subset of *redis.Client (or *redis.ClusterClient,
// *redis.Ring, ...) RedisStore needs. go-redis's UniversalClient already
// satisfies it; the connection pooling, reconnection, and per-command
// retry all live in that client and its configured Options, per the
// design's "no timeouts in the core" stance.
type RedisClient interface {
	redis.Cmdable
}

// RedisStore implements SessionStore against Redis. It holds no per-request
// state: the wrapped RedisClient is itself safe for concurrent use and
// internally multiplexed, so acquiring a "connection" never blocks.
type RedisStore[T any] struct {
	client RedisClient
	prefix string
	codec  Codec
	rngStore
}

// RedisStoreOption configures a RedisStore at construction time.
type RedisStoreOption[T any] func(*RedisStore[T])

// WithRedisKeyPrefix overrides DefaultRedisKeyPrefix.
func WithRedisKeyPrefix[T any](prefix string) RedisStoreOption[T] {
	return func(s *RedisStore[T]) { s.prefix = prefix }
}

// WithRedisCodec overrides DefaultCodec.
func WithRedisCodec[T any](codec Codec) RedisStoreOption[T] {
	return func(s *RedisStore[T]) { s.codec = codec }
}

// NewRedisStore wraps client. client is typically a *redis.Client built by
// the caller with whatever TLS, timeout, and connection pool settings its
// deployment needs -- this store doesn't second-guess any of that.
func NewRedisStore[T any](client RedisClient, opts ...RedisStoreOption[T]) *RedisStore[T] {
	s := &RedisStore[T]{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		codec:  DefaultCodec,
	}
	s.rngStore.init()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore[T]) redisKey(key SessionKey) string {
	return s.prefix + key.Encode()
}

// withRetry runs op once, and retries it exactly once more if the failure
// looks like a dropped connection (network error or io.EOF/ErrUnexpectedEOF),
// per the design's "transparently retried once" connection discipline.
// Any further failure is surfaced as ErrBackend.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if !isConnectionError(err) {
		return errWrapBackend(err)
	}
	if err2 := op(ctx); err2 != nil {
		return errWrapBackend(err2)
	}
	return nil
}

func isConnectionError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func errWrapBackend(err error) error {
	if err == nil {
		return nil
	}
	return &wrappedError{sentinel: ErrBackend, err: err}
}

func errWrapSerde(err error) error {
	if err == nil {
		return nil
	}
	return &wrappedError{sentinel: ErrSerde, err: err}
}

// wrappedError lets errors.Is match the taxonomy sentinel while %v/Error()
// keeps the underlying cause.
type wrappedError struct {
	sentinel error
	err      error
}

func (e *wrappedError) Error() string { return e.sentinel.Error() + ": " + e.err.Error() }
func (e *wrappedError) Unwrap() error { return e.sentinel }
func (e *wrappedError) Cause() error  { return e.err }

func (s *RedisStore[T]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return SessionKey{}, errWrapSerde(err)
	}
	if len(encoded) == 0 {
		// go-redis treats an empty byte slice like a missing value for
		// some commands; humanize the size in the (extremely unlikely)
		// diagnostic path rather than silently writing nothing.
		err = NewStoreError("encoded payload is empty (%s)", humanize.Bytes(0))
		return SessionKey{}, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		key, err := GenerateKeyFrom(s.reader())
		if err != nil {
			return SessionKey{}, NewStoreError("generate key: %v", err)
		}

		var stored bool
		err = withRetry(ctx, func(ctx context.Context) error {
			res, err := s.client.SetArgs(ctx, s.redisKey(key), encoded, redis.SetArgs{
				Mode:     "NX",
				ExpireAt: ttl,
			}).Result()
			if errors.Is(err, redis.Nil) {
				stored = false
				return nil
			}
			if err != nil {
				return err
			}
			stored = res != ""
			return nil
		})
		if err != nil {
			return SessionKey{}, err
		}
		if !stored {
			continue
		}
		return key, nil
	}
	return SessionKey{}, ErrMaxIterationsReached
}

func (s *RedisStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	redisKey := s.redisKey(key)

	var rawTTL time.Duration
	var payload string
	var missing bool

	err := withRetry(ctx, func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		getCmd := pipe.Get(ctx, redisKey)
		ttlCmd := pipe.TTL(ctx, redisKey)
		_, err := pipe.Exec(ctx)
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if errors.Is(getCmd.Err(), redis.Nil) {
			missing = true
			return nil
		}
		if err := getCmd.Err(); err != nil {
			return err
		}
		payload = getCmd.Val()
		rawTTL = ttlCmd.Val()
		return nil
	})
	if err != nil {
		return Record[T]{}, false, err
	}
	if missing {
		return Record[T]{}, false, nil
	}

	var data T
	if err := s.codec.Decode([]byte(payload), &data); err != nil {
		return Record[T]{}, false, errWrapSerde(err)
	}

	ttl := time.Now().Add(rawTTL)
	if rawTTL <= 0 {
		ttl = time.Now().Add(DefaultSessionExpiry)
		_ = withRetry(ctx, func(ctx context.Context) error {
			return s.client.ExpireAt(ctx, redisKey, ttl).Err()
		})
	}
	return Record[T]{Data: data, TTL: ttl}, true, nil
}

func (s *RedisStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	encoded, err := s.codec.Encode(data)
	if err != nil {
		return errWrapSerde(err)
	}
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.SetArgs(ctx, s.redisKey(key), encoded, redis.SetArgs{ExpireAt: ttl}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
}

func (s *RedisStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	return withRetry(ctx, func(ctx context.Context) error {
		// NX/XX expire flags require Redis 7+; ExpireAt on a missing key is
		// already a documented no-op, matching the "no-op if absent"
		// contract without needing the conditional flag.
		return s.client.ExpireAt(ctx, s.redisKey(key), ttl).Err()
	})
}

func (s *RedisStore[T]) Delete(ctx context.Context, key SessionKey) error {
	return withRetry(ctx, func(ctx context.Context) error {
		return s.client.Del(ctx, s.redisKey(key)).Err()
	})
}

var _ SessionStore[struct{}] = (*RedisStore[struct{}])(nil)
var _ SessionStoreRng = (*RedisStore[struct{}])(nil)
