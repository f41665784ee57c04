package jwks

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/example/oauth-demo/core"
)

const (
	defaultCacheTTL      = 15 * time.Minute
	defaultClientTimeout = 30 * time.Second
)

// Option configures a Provider or a CachingProvider.
type Option func(*config) error

type config struct {
	issuerURL  *url.URL
	jwksURI    *url.URL
	httpClient *http.Client
	cacheTTL   time.Duration
	cache      Cache
	logger     core.Logger
	now        func() time.Time
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		cacheTTL:   defaultCacheTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.issuerURL == nil {
		return nil, errors.New("issuer URL is required (use WithIssuerURL)")
	}

	return c, nil
}

// WithIssuerURL sets the issuer whose discovery document names the JWKS URI.
// Required.
func WithIssuerURL(issuerURL *url.URL) Option {
	return func(c *config) error {
		if issuerURL == nil {
			return errors.New("issuer URL cannot be nil")
		}
		c.issuerURL = issuerURL
		return nil
	}
}

// WithCustomJWKSURI fetches keys from jwksURI directly and skips discovery.
func WithCustomJWKSURI(jwksURI *url.URL) Option {
	return func(c *config) error {
		if jwksURI == nil {
			return errors.New("custom JWKS URI cannot be nil")
		}
		c.jwksURI = jwksURI
		return nil
	}
}

// WithCustomClient replaces the default client, which times out after 30s.
func WithCustomClient(client *http.Client) Option {
	return func(c *config) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithCacheTTL sets how long a CachingProvider keeps a key set.
// Zero selects the default of 15 minutes. Provider ignores it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = defaultCacheTTL
		}
		c.cacheTTL = ttl
		return nil
	}
}

// WithCache replaces the in-memory cache used by CachingProvider.
func WithCache(cache Cache) Option {
	return func(c *config) error {
		if cache == nil {
			return errors.New("cache cannot be nil")
		}
		c.cache = cache
		return nil
	}
}

// WithLogger reports fetches and failed background refreshes.
func WithLogger(logger core.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithClock overrides time.Now for cache expiry. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}
