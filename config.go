package sesh

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SameSite is the closed set of Set-Cookie SameSite values this package
// supports. It deliberately doesn't alias net/http.SameSite so Config can
// be parsed from plain strings (env vars, config files) without depending
// on net/http's iota values lining up.
type SameSite int

const (
	SameSiteStrict SameSite = iota
	SameSiteLax
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteLax:
		return "Lax"
	case SameSiteNone:
		return "None"
	default:
		return "Strict"
	}
}

// DefaultSessionExpiry is exported above in redis_store.go; Config reuses
// it as the default "session_expiry" when none is configured.

// Config holds the middleware's cookie and expiry policy. The zero value
// is not valid; use NewConfig for OWASP-recommended defaults.
type Config struct {
	CookieName    string
	Domain        string // empty means unset
	HTTPOnly      bool
	Path          string // empty means unset
	SameSite      SameSite
	Secure        bool
	SessionExpiry time.Duration
}

// NewConfig returns a Config following OWASP session-management guidance:
// cookie_name "id", no domain, HttpOnly, no explicit path, SameSite=Strict,
// Secure, and a 2-week expiry.
func NewConfig() Config {
	return Config{
		CookieName:    "id",
		HTTPOnly:      true,
		SameSite:      SameSiteStrict,
		Secure:        true,
		SessionExpiry: DefaultSessionExpiry,
	}
}

// Validate rejects a CookieName containing a character illegal in an HTTP
// header value. SessionLayer's CookieName setter calls this and panics
// on failure, per spec.
func (c Config) Validate() error {
	if c.CookieName == "" {
		return fmt.Errorf("sesh: cookie_name must not be empty")
	}
	for _, r := range c.CookieName {
		if r <= 0x20 || r == 0x7f || r == ';' || r == ',' || r == '"' {
			return fmt.Errorf("sesh: cookie_name %q contains a character illegal in an HTTP header value", c.CookieName)
		}
	}
	return nil
}

// envConfig mirrors Config's fields in the shape envconfig expects:
// exported fields with a "SESH" prefix, e.g. SESH_COOKIE_NAME.
type envConfig struct {
	CookieName    string        `split_words:"true" default:"id"`
	Domain        string        `split_words:"true"`
	HTTPOnly      bool          `split_words:"true" default:"true"`
	Path          string        `split_words:"true"`
	SameSite      string        `split_words:"true" default:"Strict"`
	Secure        bool          `split_words:"true" default:"true"`
	SessionExpiry time.Duration `split_words:"true" default:"336h"`
}

// LoadConfigFromEnv loads a Config from SESH_-prefixed environment
// variables, optionally reading a local .env file first (ignored if
// absent -- godotenv.Load's error is only meaningful when a path is
// given explicitly and missing).
func LoadConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	var ec envConfig
	if err := envconfig.Process("sesh", &ec); err != nil {
		return Config{}, fmt.Errorf("sesh: load config from env: %w", err)
	}

	cfg := Config{
		CookieName:    ec.CookieName,
		Domain:        ec.Domain,
		HTTPOnly:      ec.HTTPOnly,
		Path:          ec.Path,
		Secure:        ec.Secure,
		SessionExpiry: ec.SessionExpiry,
	}
	switch ec.SameSite {
	case "Lax", "lax":
		cfg.SameSite = SameSiteLax
	case "None", "none":
		cfg.SameSite = SameSiteNone
	default:
		cfg.SameSite = SameSiteStrict
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
