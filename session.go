package sesh

import (
	"context"
	"sync"
	"time"
)

type sessionStatus int

const (
	statusUnchanged sessionStatus = iota
	statusRenewed
	statusChanged
	statusPurged
	statusSynced
)

// SyncActionKind is the outcome of Session.sync: whether the middleware
// needs to emit a Set-Cookie, a removal cookie, or nothing.
type SyncActionKind int

const (
	// SyncNone means no cookie needs to be written.
	SyncNone SyncActionKind = iota
	// SyncSet means a Set-Cookie for Key must be written.
	SyncSet
	// SyncRemove means a removal cookie must be written.
	SyncRemove
)

// SyncAction is the result of Session.sync.
type SyncAction struct {
	Kind SyncActionKind
	Key  SessionKey
}

// Session is the per-request handle to session state: a lazy, mutex-guarded
// view over a SessionStore record that tracks what the handler did to it so
// sync knows exactly one thing to do when the request finishes.
type Session[T any] struct {
	mu sync.Mutex

	incomingKey SessionKey // zero means "no session cookie on this request"
	hasIncoming bool

	store SessionStore[T]
	ttl   time.Duration

	loaded  bool
	data    T
	hasData bool

	status sessionStatus
}

// NewSession constructs the lazy handle SessionLayer's Middleware installs
// in the request's context. incomingKey/hasIncoming reflect whatever key (if
// any) the cipher recovered from the request's cookie.
func NewSession[T any](incomingKey SessionKey, hasIncoming bool, store SessionStore[T], ttl time.Duration) *Session[T] {
	return &Session[T]{
		incomingKey: incomingKey,
		hasIncoming: hasIncoming,
		store:       store,
		ttl:         ttl,
	}
}

func (s *Session[T]) warnUsedAfterSync() {
	logWithTarget(logTargetSession).Warn("called Session method after it was synchronized to store")
}

// Get lazily loads the session's data from the store on first call within
// the request; subsequent calls return the cached view. ok is false if
// there was no incoming key, or the store had nothing for it.
func (s *Session[T]) Get(ctx context.Context) (data T, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == statusSynced {
		s.warnUsedAfterSync()
		var zero T
		return zero, false, nil
	}

	if !s.loaded {
		s.loaded = true
		if s.hasIncoming && s.store != nil {
			rec, found, loadErr := s.store.Load(ctx, s.incomingKey)
			if loadErr != nil {
				var zero T
				return zero, false, loadErr
			}
			if found {
				s.data = rec.Data
				s.hasData = true
			}
		}
	}

	return s.data, s.hasData, nil
}

// Insert replaces the session's data and marks it Changed.
func (s *Session[T]) Insert(data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statusSynced {
		s.warnUsedAfterSync()
		return
	}
	s.data = data
	s.hasData = true
	s.loaded = true
	if s.status != statusPurged {
		s.status = statusChanged
	}
}

// Take clears the session's data, marks it Changed, and returns whatever
// data was present beforehand.
func (s *Session[T]) Take(ctx context.Context) (data T, ok bool, err error) {
	data, ok, err = s.Get(ctx)
	if err != nil {
		return data, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statusSynced {
		s.warnUsedAfterSync()
		var zero T
		return zero, false, nil
	}
	var zero T
	s.data = zero
	s.hasData = false
	if s.status != statusPurged {
		s.status = statusChanged
	}
	return data, ok, nil
}

// Remove clears the session's data and marks it Changed, discarding
// whatever was present.
func (s *Session[T]) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statusSynced {
		s.warnUsedAfterSync()
		return
	}
	var zero T
	s.data = zero
	s.hasData = false
	s.loaded = true
	if s.status != statusPurged {
		s.status = statusChanged
	}
}

// Clear is an alias for Remove.
func (s *Session[T]) Clear() { s.Remove() }

// Renew marks the session for key rotation on sync, preserving its data.
// It's a no-op if the session is already Changed or Purged.
func (s *Session[T]) Renew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statusSynced {
		s.warnUsedAfterSync()
		return
	}
	if s.status == statusUnchanged {
		s.status = statusRenewed
	}
}

// Purge marks the session for deletion and drops any cached data.
func (s *Session[T]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == statusSynced {
		s.warnUsedAfterSync()
		return
	}
	var zero T
	s.data = zero
	s.hasData = false
	s.status = statusPurged
}

// sync reconciles the session's in-memory status against the store exactly
// once, per the state table in spec §4.8, and marks the session Synced
// afterward regardless of outcome.
func (s *Session[T]) sync(ctx context.Context) (SyncAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == statusSynced {
		return SyncAction{Kind: SyncNone}, nil
	}
	defer func() { s.status = statusSynced }()

	ttl := time.Now().Add(s.ttl)

	switch s.status {
	case statusUnchanged:
		return SyncAction{Kind: SyncNone}, nil

	case statusRenewed:
		if !s.loaded && s.hasIncoming {
			rec, found, loadErr := s.store.Load(ctx, s.incomingKey)
			if loadErr != nil {
				return SyncAction{}, loadErr
			}
			if found {
				s.data = rec.Data
				s.hasData = true
			}
			s.loaded = true
		}
		newKey, err := s.store.Create(ctx, s.data, ttl)
		if err != nil {
			return SyncAction{}, err
		}
		if s.hasIncoming {
			if err := s.store.Delete(ctx, s.incomingKey); err != nil {
				return SyncAction{}, err
			}
		}
		return SyncAction{Kind: SyncSet, Key: newKey}, nil

	case statusChanged:
		if !s.hasIncoming {
			newKey, err := s.store.Create(ctx, s.data, ttl)
			if err != nil {
				return SyncAction{}, err
			}
			return SyncAction{Kind: SyncSet, Key: newKey}, nil
		}
		if err := s.store.Update(ctx, s.incomingKey, s.data, ttl); err != nil {
			return SyncAction{}, err
		}
		return SyncAction{Kind: SyncNone}, nil

	case statusPurged:
		if !s.hasIncoming {
			return SyncAction{Kind: SyncNone}, nil
		}
		if err := s.store.Delete(ctx, s.incomingKey); err != nil {
			return SyncAction{}, err
		}
		return SyncAction{Kind: SyncRemove}, nil
	}

	return SyncAction{Kind: SyncNone}, nil
}

// touched reports whether the handler ever called a method that could
// require syncing -- SessionLayer's Middleware uses this to skip sync() entirely for
// handlers that never looked at the session.
func (s *Session[T]) touched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded || s.status != statusUnchanged
}

// SessionRejection is the error the request-extraction contract returns
// when no Session[T] was found in a request's context -- SessionLayer
// wasn't installed, or was installed for a different T.
type SessionRejection struct {
	Body string
}

func (e *SessionRejection) Error() string { return e.Body }

// StatusCode is always 500: a missing session extension is a server
// misconfiguration, never a client error.
func (e *SessionRejection) StatusCode() int { return 500 }

type sessionContextKey[T any] struct{}

func withSession[T any](ctx context.Context, s *Session[T]) context.Context {
	return context.WithValue(ctx, sessionContextKey[T]{}, s)
}

// FromContext retrieves the Session[T] that SessionLayer inserted into
// ctx. Its absence (middleware not installed for T) is reported as a
// SessionRejection and logged at trace level under the rejection target,
// matching the spec's HTTP-framework extractor contract.
func FromContext[T any](ctx context.Context) (*Session[T], error) {
	s, ok := ctx.Value(sessionContextKey[T]{}).(*Session[T])
	if !ok {
		rejection := &SessionRejection{Body: "Missing request extension"}
		logWithTarget(logTargetRejection).WithFields(map[string]any{
			"status":         rejection.StatusCode(),
			"body":           rejection.Body,
			"rejection_type": "SessionRejection",
			"message":        "rejecting request",
		}).Trace("rejecting request")
		return nil, rejection
	}
	return s, nil
}
