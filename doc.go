/*
Package sesh provides a modular, generic session management library for Go
web applications.

It offers a unified, type-safe session contract with support for multiple
persistence backends -- in-process memory, Redis, SQLite/PostgreSQL (via
database/sql), and Memcached -- plus a write-through caching composite that
layers any two of them together. A session's payload is any Go type T,
serialized through a pluggable Codec (JSON by default, CBOR for a compact
self-describing binary alternative).

Key Features:

  - Modular Storage: pluggable SessionStore[T] backends (Memory, Redis,
    SQL, Memcached, Caching), all sharing one contract and error taxonomy.
  - Security First:
  - Session key regeneration to prevent session fixation attacks.
  - Signed and encrypted cookie ciphers via gorilla/securecookie.
  - Secure default cookie settings (HttpOnly, SameSite=Strict, Secure).
  - Context-aware storage operations throughout.
  - Change tracking: a Session[T] loads from the store at most once per
    request, and writes back only when the handler changed, renewed or
    purged it.
  - Expiry: stores either evict lazily (Memory) or expire natively (Redis,
    Memcached); SQL filters expired rows through an indexed expires_at
    column but does not delete them.

Usage:

To use sesh, initialize a storage backend and wrap your handlers with a
SessionLayer built on top of it.

	store := sesh.NewMemoryStore[UserSession]()

	layer := sesh.NewSessionLayer[UserSession](store, cipherKey).
		CookieName("id").
		SameSite(sesh.SameSiteStrict).
		Secure(true)

	http.Handle("/", layer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := sesh.FromContext[UserSession](r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		session.Insert(UserSession{UserID: 42, Authenticated: true})
	})))

Store Implementations:

  - Memory: sharded, in-process, suitable for single-instance deployments.
  - Redis: github.com/redis/go-redis/v9, the one networked backend every
    deployment beyond a single process needs.
  - SQL: database/sql over modernc.org/sqlite or github.com/lib/pq.
  - Memcached: github.com/bradfitz/gomemcache.
  - Caching: a fast Cache in front of any of the above as the store of
    record.

Thread Safety:

Every SessionStore[T] implementation is safe for concurrent use by
multiple goroutines. A Session[T] is internally synchronized but is scoped
to a single request; do not share one across requests.
*/
package sesh
