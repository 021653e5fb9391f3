package sesh

import (
	"context"
	"net/http"
	"time"
)

// httpJar adapts a single request/response pair to the CookieJar interface
// CookieCipher needs: Cookie reads from the request, SetCookie writes
// Set-Cookie headers onto the response.
type httpJar struct {
	r *http.Request
	w http.ResponseWriter
}

func (j httpJar) Cookie(name string) (*http.Cookie, error) {
	return j.r.Cookie(name)
}

func (j httpJar) SetCookie(c *http.Cookie) {
	http.SetCookie(j.w, c)
}

// SessionLayer is the builder for a session middleware instance. Build it
// once at startup, configure it with the chainable setters, then call
// Middleware to wrap handlers.
type SessionLayer[T any, St SessionStore[T]] struct {
	store  St
	cipher CookieCipher
	key    []byte
	config Config
}

// NewSessionLayer builds a layer backed by an Encrypted cipher. key must be
// at least MinCipherKeyBytes long.
func NewSessionLayer[T any, St SessionStore[T]](store St, key []byte) *SessionLayer[T, St] {
	return &SessionLayer[T, St]{
		store:  store,
		cipher: NewEncryptedCipher(key),
		key:    key,
		config: NewConfig(),
	}
}

// PlainSessionLayer builds a layer whose session key travels the cookie
// unauthenticated and unencrypted. This is insecure against client
// tampering and is logged as such at construction time.
func PlainSessionLayer[T any, St SessionStore[T]](store St) *SessionLayer[T, St] {
	logWithTarget(logTargetMiddleware).Warn("PlainSessionLayer stores the session key without signing or encryption")
	return &SessionLayer[T, St]{
		store:  store,
		cipher: PlainCipher{},
		config: NewConfig(),
	}
}

// Signed rotates the layer onto a Signed cipher, preserving the key.
func (l *SessionLayer[T, St]) Signed() *SessionLayer[T, St] {
	l.cipher = NewSignedCipher(l.key)
	return l
}

// Private rotates the layer onto an Encrypted cipher, preserving the key.
func (l *SessionLayer[T, St]) Private() *SessionLayer[T, St] {
	l.cipher = NewEncryptedCipher(l.key)
	return l
}

// CookieName sets the session cookie's name. Panics if name contains a
// character illegal in an HTTP header value.
func (l *SessionLayer[T, St]) CookieName(name string) *SessionLayer[T, St] {
	l.config.CookieName = name
	if err := l.config.Validate(); err != nil {
		panic(err)
	}
	return l
}

// Domain sets the Set-Cookie Domain attribute.
func (l *SessionLayer[T, St]) Domain(domain string) *SessionLayer[T, St] {
	l.config.Domain = domain
	return l
}

// HTTPOnly sets the Set-Cookie HttpOnly attribute.
func (l *SessionLayer[T, St]) HTTPOnly(httpOnly bool) *SessionLayer[T, St] {
	l.config.HTTPOnly = httpOnly
	return l
}

// Path sets the Set-Cookie Path attribute.
func (l *SessionLayer[T, St]) Path(path string) *SessionLayer[T, St] {
	l.config.Path = path
	return l
}

// SameSite sets the Set-Cookie SameSite attribute.
func (l *SessionLayer[T, St]) SameSite(sameSite SameSite) *SessionLayer[T, St] {
	l.config.SameSite = sameSite
	return l
}

// Secure sets the Set-Cookie Secure attribute.
func (l *SessionLayer[T, St]) Secure(secure bool) *SessionLayer[T, St] {
	l.config.Secure = secure
	return l
}

// SessionExpiry sets the TTL newly created or renewed sessions receive.
func (l *SessionLayer[T, St]) SessionExpiry(ttl time.Duration) *SessionLayer[T, St] {
	l.config.SessionExpiry = ttl
	return l
}

type layerMarkerKey[T any] struct{}

// Middleware wraps next with the session pipeline described in spec §4.9:
// parse the request's cookies, recover and verify/decrypt the session key,
// construct a lazy Session[T] and install it in the request's context,
// invoke next, and -- if the handler touched the session and didn't error
// out -- sync it to the store and emit the resulting Set-Cookie.
func (l *SessionLayer[T, St]) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ctx.Value(layerMarkerKey[T]{}) != nil {
			panic("SessionLayer inserted more than once!")
		}
		ctx = context.WithValue(ctx, layerMarkerKey[T]{}, true)

		jar := httpJar{r: r, w: w}

		var incomingKey SessionKey
		hasIncoming := false
		if raw, ok := l.cipher.Get(jar, l.config.CookieName); ok {
			key, err := DecodeKey(raw)
			if err != nil {
				logWithTarget(logTargetMiddleware).WithError(err).Warn("session cookie did not decode to a valid session key")
			} else {
				incomingKey = key
				hasIncoming = true
			}
		}

		session := NewSession[T](incomingKey, hasIncoming, l.store, l.config.SessionExpiry)
		ctx = withSession(ctx, session)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.errored || !session.touched() {
			return
		}

		action, err := session.sync(r.Context())
		if err != nil {
			logWithTarget(logTargetMiddleware).WithError(err).Error("failed to sync session to store")
			return
		}

		switch action.Kind {
		case SyncSet:
			cookie := &http.Cookie{
				Name:     l.config.CookieName,
				Value:    action.Key.Encode(),
				HttpOnly: l.config.HTTPOnly,
				Secure:   l.config.Secure,
				SameSite: toStdSameSite(l.config.SameSite),
			}
			if l.config.Domain != "" {
				cookie.Domain = l.config.Domain
			}
			if l.config.Path != "" {
				cookie.Path = l.config.Path
			}
			l.cipher.Add(jar, cookie)
		case SyncRemove:
			l.cipher.Remove(jar, l.config.CookieName)
		}
	})
}

func toStdSameSite(s SameSite) http.SameSite {
	switch s {
	case SameSiteLax:
		return http.SameSiteLaxMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// statusRecorder lets Middleware tell whether the handler signaled an
// error response (status >= 500) without requiring handlers to return an
// explicit error value the way a framework's Result-returning handler
// signature would.
type statusRecorder struct {
	http.ResponseWriter
	errored bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if status >= 500 {
		r.errored = true
	}
	r.ResponseWriter.WriteHeader(status)
}

// ParseCookieHeader splits a raw Cookie header into individual cookies,
// ignoring any segment that fails to parse -- net/http.Request.Cookie
// already does this internally via readCookies, but some callers (tests,
// non-net/http transports) need the standalone behavior spec §4.9 step 1
// describes.
func ParseCookieHeader(header string) []*http.Cookie {
	req := &http.Request{Header: http.Header{"Cookie": {header}}}
	return req.Cookies()
}
