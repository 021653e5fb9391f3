package sesh

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// maxCreateAttempts bounds the number of times a store retries Create after
// a key collision before giving up with ErrMaxIterationsReached.
const maxCreateAttempts = 8

// Sentinel errors making up the store error taxonomy (spec §4.4, §7).
// ErrBackend and ErrSerde are wrapped by errWrapBackend/errWrapSerde so
// errors.Is still matches the sentinel while the message carries the
// underlying cause.
var (
	// ErrSerde indicates the configured Codec failed to encode or decode a
	// payload.
	ErrSerde = errors.New("sesh: codec failure")

	// ErrBackend indicates a transport/IO failure talking to the backing
	// store, after any internal retry the backend performs has already
	// been exhausted.
	ErrBackend = errors.New("sesh: store backend failure")

	// ErrMaxIterationsReached indicates Create collided with an existing
	// key maxCreateAttempts times in a row.
	ErrMaxIterationsReached = errors.New("sesh: exhausted key generation attempts")
)

// StoreError carries a free-form description, for failures that don't fit
// the Serde/Backend/MaxIterationsReached taxonomy.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string { return "sesh: " + e.Message }

// NewStoreError builds a general-purpose store error.
func NewStoreError(format string, args ...any) error {
	return &StoreError{Message: fmt.Sprintf(format, args...)}
}

// SessionStore is the asynchronous contract every backing store implements.
// Every method that can fail returns an error drawn from the taxonomy above.
//
// Create retries internally on key collision (up to 8 attempts) and
// returns ErrMaxIterationsReached if it never finds a free key. Implementers
// may persist a record whose ttl has already passed, or may skip persisting
// it and still hand back a key -- either is acceptable, since Load must
// return (Record[T]{}, false, nil) for an expired or never-persisted record
// either way (see DESIGN.md, Open Question 1).
type SessionStore[T any] interface {
	// Create generates a fresh SessionKey, atomically inserts (data, ttl)
	// under it, and returns the key.
	Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error)

	// Load returns the record stored under key, or ok=false if no
	// unexpired record exists for it.
	Load(ctx context.Context, key SessionKey) (rec Record[T], ok bool, err error)

	// Update upserts: it creates the record if key is absent, and
	// overwrites it unconditionally if present.
	Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error

	// UpdateTTL changes only the expiration of an existing record. It is a
	// no-op, not an error, if key is absent, and never resurrects an
	// already-expired record.
	UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error

	// Delete removes key's record. Deleting an absent key succeeds.
	Delete(ctx context.Context, key SessionKey) error
}

// SessionStoreRng is an optional capability: a store that supports seeding
// its random key source implements this, so tests can force key collisions
// deterministically (spec scenario S4).
type SessionStoreRng interface {
	SetRand(r io.Reader)
}

// rngStore is embedded by store implementations to give them SetRand for
// free, guarding the io.Reader with its own mutex since it's set at most
// once per store (by a test) but read on every Create.
type rngStore struct {
	mu  sync.Mutex
	rng io.Reader
}

func (s *rngStore) init() {
	s.mu.Lock()
	s.rng = rand.Reader
	s.mu.Unlock()
}

// SetRand implements SessionStoreRng.
func (s *rngStore) SetRand(r io.Reader) {
	s.mu.Lock()
	s.rng = r
	s.mu.Unlock()
}

func (s *rngStore) reader() io.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}
