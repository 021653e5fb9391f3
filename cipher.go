package sesh

import (
	"net/http"

	"github.com/gorilla/securecookie"
)

// MinCipherKeyBytes is the minimum key length SessionLayer accepts for the
// Signed and Encrypted ciphers. securecookie itself is tolerant of shorter
// keys; the spec's own floor (64 bytes) is stricter and enforced here.
const MinCipherKeyBytes = 64

// GenerateRandomKey returns a cryptographically random key of the given
// length, suitable for NewSignedCipher/NewEncryptedCipher. It returns nil
// on a system RNG failure; callers must check for that rather than pass
// a nil key on to a cipher constructor, which would simply panic on
// length instead of surfacing the real cause.
func GenerateRandomKey(length int) []byte {
	return securecookie.GenerateRandomKey(length)
}

// CookieJar is the minimal view over a request's cookies and a response's
// outgoing Set-Cookie headers a CookieCipher needs. *http.Request and
// http.ResponseWriter both satisfy it through thin adapters in manager.go.
type CookieJar interface {
	Cookie(name string) (*http.Cookie, error)
	SetCookie(c *http.Cookie)
}

// CookieCipher reads and writes a session's carrier cookie, optionally
// authenticating or encrypting its value. IntoKey exposes the raw key
// material; Plain has none and panics if asked.
type CookieCipher interface {
	// Get retrieves and, depending on the variant, verifies or decrypts
	// the named cookie. ok is false if the cookie is absent, malformed,
	// or fails verification/decryption -- all three are deliberately
	// indistinguishable to the caller, which must log and treat them as
	// "no session cookie" rather than surface a parse error.
	Get(jar CookieJar, name string) (value string, ok bool)

	// Add writes cookie into jar, applying whatever encoding the variant
	// requires to its Value first.
	Add(jar CookieJar, cookie *http.Cookie)

	// Remove writes a cookie into jar that instructs the browser to
	// delete the named cookie (empty value, Max-Age=0).
	Remove(jar CookieJar, name string)

	// IntoKey returns the raw key backing this cipher. Plain has none
	// and panics.
	IntoKey() []byte
}

// PlainCipher stores and reads the session key verbatim, with no
// authentication or encryption. Using it is a deliberate security
// trade-off: a client can forge any session key it likes.
type PlainCipher struct{}

func (PlainCipher) Get(jar CookieJar, name string) (string, bool) {
	c, err := jar.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (PlainCipher) Add(jar CookieJar, cookie *http.Cookie) {
	jar.SetCookie(cookie)
}

func (PlainCipher) Remove(jar CookieJar, name string) {
	jar.SetCookie(removalCookie(name))
}

func (PlainCipher) IntoKey() []byte {
	panic("sesh: PlainCipher has no underlying key")
}

// SignedCipher HMAC-authenticates the cookie value without encrypting it:
// the session key is visible to the client but cannot be forged or
// tampered with undetected.
type SignedCipher struct {
	key []byte
	sc  *securecookie.SecureCookie
}

// NewSignedCipher builds a SignedCipher. key must be at least
// MinCipherKeyBytes long.
func NewSignedCipher(key []byte) SignedCipher {
	if len(key) < MinCipherKeyBytes {
		panic("sesh: cipher key must be at least 64 bytes")
	}
	return SignedCipher{key: key, sc: securecookie.New(key, nil)}
}

func (c SignedCipher) Get(jar CookieJar, name string) (string, bool) {
	raw, ok := rawCookieValue(jar, name)
	if !ok {
		return "", false
	}
	var value string
	if err := c.sc.Decode(name, raw, &value); err != nil {
		logWithTarget(logTargetMiddleware).WithError(err).Warn("session cookie signature verification failed")
		return "", false
	}
	return value, true
}

func (c SignedCipher) Add(jar CookieJar, cookie *http.Cookie) {
	encoded, err := c.sc.Encode(cookie.Name, cookie.Value)
	if err != nil {
		logWithTarget(logTargetMiddleware).WithError(err).Error("failed to sign session cookie")
		return
	}
	out := *cookie
	out.Value = encoded
	jar.SetCookie(&out)
}

func (c SignedCipher) Remove(jar CookieJar, name string) {
	jar.SetCookie(removalCookie(name))
}

func (c SignedCipher) IntoKey() []byte { return c.key }

// EncryptedCipher authenticates and encrypts the cookie value: the session
// key itself is opaque to the client.
type EncryptedCipher struct {
	key []byte
	sc  *securecookie.SecureCookie
}

// NewEncryptedCipher builds an EncryptedCipher. key must be at least
// MinCipherKeyBytes long; its last 32 bytes become the AES-256 block key
// and everything before them the HMAC hash key passed to securecookie.New.
func NewEncryptedCipher(key []byte) EncryptedCipher {
	if len(key) < MinCipherKeyBytes {
		panic("sesh: cipher key must be at least 64 bytes")
	}
	split := len(key) - 32
	return EncryptedCipher{key: key, sc: securecookie.New(key[:split], key[split:])}
}

func (c EncryptedCipher) Get(jar CookieJar, name string) (string, bool) {
	raw, ok := rawCookieValue(jar, name)
	if !ok {
		return "", false
	}
	var value string
	if err := c.sc.Decode(name, raw, &value); err != nil {
		logWithTarget(logTargetMiddleware).WithError(err).Warn("session cookie decryption failed")
		return "", false
	}
	return value, true
}

func (c EncryptedCipher) Add(jar CookieJar, cookie *http.Cookie) {
	encoded, err := c.sc.Encode(cookie.Name, cookie.Value)
	if err != nil {
		logWithTarget(logTargetMiddleware).WithError(err).Error("failed to encrypt session cookie")
		return
	}
	out := *cookie
	out.Value = encoded
	jar.SetCookie(&out)
}

func (c EncryptedCipher) Remove(jar CookieJar, name string) {
	jar.SetCookie(removalCookie(name))
}

func (c EncryptedCipher) IntoKey() []byte { return c.key }

func rawCookieValue(jar CookieJar, name string) (string, bool) {
	c, err := jar.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func removalCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:   name,
		Value:  "",
		MaxAge: -1,
	}
}

var (
	_ CookieCipher = PlainCipher{}
	_ CookieCipher = SignedCipher{}
	_ CookieCipher = EncryptedCipher{}
)
