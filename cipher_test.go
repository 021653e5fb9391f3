package sesh

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testJar adapts an httptest.ResponseRecorder/*http.Request pair to
// CookieJar, the same way httpJar does in manager.go.
type testJar struct {
	r *http.Request
	w *httptest.ResponseRecorder
}

func (j testJar) Cookie(name string) (*http.Cookie, error) { return j.r.Cookie(name) }
func (j testJar) SetCookie(c *http.Cookie)                 { http.SetCookie(j.w, c) }

func newTestJar(cookies ...*http.Cookie) testJar {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return testJar{r: req, w: httptest.NewRecorder()}
}

func TestPlainCipherRoundTrip(t *testing.T) {
	c := PlainCipher{}
	jar := newTestJar()

	c.Add(jar, &http.Cookie{Name: "id", Value: "raw-value"})
	result := jar.w.Result()
	jar2 := newTestJar(result.Cookies()...)

	value, ok := c.Get(jar2, "id")
	require.True(t, ok)
	assert.Equal(t, "raw-value", value)
}

func TestPlainCipherGetMissingCookie(t *testing.T) {
	c := PlainCipher{}
	_, ok := c.Get(newTestJar(), "id")
	assert.False(t, ok)
}

func TestPlainCipherIntoKeyPanics(t *testing.T) {
	assert.Panics(t, func() { PlainCipher{}.IntoKey() })
}

func TestPlainCipherRemoveExpiresCookie(t *testing.T) {
	c := PlainCipher{}
	jar := newTestJar()
	c.Remove(jar, "id")

	cookies := jar.w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSignedCipherRoundTrip(t *testing.T) {
	key := GenerateRandomKey(64)
	c := NewSignedCipher(key)
	jar := newTestJar()

	c.Add(jar, &http.Cookie{Name: "id", Value: "session-value"})
	jar2 := newTestJar(jar.w.Result().Cookies()...)

	value, ok := c.Get(jar2, "id")
	require.True(t, ok)
	assert.Equal(t, "session-value", value)
}

func TestSignedCipherRejectsTamperedValue(t *testing.T) {
	key := GenerateRandomKey(64)
	c := NewSignedCipher(key)
	jar := newTestJar()
	c.Add(jar, &http.Cookie{Name: "id", Value: "session-value"})

	cookies := jar.w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookies[0].Value += "tampered"
	jar2 := newTestJar(cookies...)

	_, ok := c.Get(jar2, "id")
	assert.False(t, ok)
}

func TestSignedCipherPanicsOnShortKey(t *testing.T) {
	assert.Panics(t, func() { NewSignedCipher(make([]byte, 10)) })
}

func TestSignedCipherIntoKeyReturnsKey(t *testing.T) {
	key := GenerateRandomKey(64)
	c := NewSignedCipher(key)
	assert.Equal(t, key, c.IntoKey())
}

func TestEncryptedCipherRoundTrip(t *testing.T) {
	key := GenerateRandomKey(64)
	c := NewEncryptedCipher(key)
	jar := newTestJar()

	c.Add(jar, &http.Cookie{Name: "id", Value: "secret-value"})
	cookies := jar.w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotContains(t, cookies[0].Value, "secret-value")

	jar2 := newTestJar(cookies...)
	value, ok := c.Get(jar2, "id")
	require.True(t, ok)
	assert.Equal(t, "secret-value", value)
}

func TestEncryptedCipherPanicsOnShortKey(t *testing.T) {
	assert.Panics(t, func() { NewEncryptedCipher(make([]byte, 10)) })
}

func TestEncryptedCipherRejectsTamperedValue(t *testing.T) {
	key := GenerateRandomKey(64)
	c := NewEncryptedCipher(key)
	jar := newTestJar()
	c.Add(jar, &http.Cookie{Name: "id", Value: "secret-value"})

	cookies := jar.w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookies[0].Value = cookies[0].Value[:len(cookies[0].Value)-1] + "x"
	jar2 := newTestJar(cookies...)

	_, ok := c.Get(jar2, "id")
	assert.False(t, ok)
}

func TestGenerateRandomKeyLength(t *testing.T) {
	key := GenerateRandomKey(64)
	require.NotNil(t, key)
	assert.Len(t, key, 64)
}
