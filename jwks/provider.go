package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/example/oauth-demo/core"
	"github.com/example/oauth-demo/internal/oidc"
)

const (
	maxJWKSSize       = 1 << 20
	minCacheControl   = time.Second
	maxCacheControl   = 7 * 24 * time.Hour
	backgroundTimeout = 30 * time.Second
)

// Cache stores key sets by JWKS URI. Get either returns a stored set or
// fetches a fresh one.
type Cache interface {
	Get(ctx context.Context, jwksURI string) (jwk.Set, error)
}

// fetcher resolves the JWKS URI and downloads key sets. Both providers share it.
type fetcher struct {
	issuerURL *url.URL
	client    *http.Client
	logger    core.Logger

	mu      sync.Mutex
	jwksURI string
}

func newFetcher(c *config) *fetcher {
	f := &fetcher{
		issuerURL: c.issuerURL,
		client:    c.httpClient,
		logger:    c.logger,
	}
	if c.jwksURI != nil {
		f.jwksURI = c.jwksURI.String()
	}
	return f
}

// resolve returns the configured or previously discovered JWKS URI, running
// discovery when neither exists yet. A failed discovery is retried on the
// next call.
func (f *fetcher) resolve(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.jwksURI != "" {
		return f.jwksURI, nil
	}

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, f.client, *f.issuerURL, f.issuerURL.String())
	if err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}

	if _, err := url.ParseRequestURI(endpoints.JWKSURI); err != nil {
		return "", fmt.Errorf("could not parse JWKS URI from well known endpoints: %w", err)
	}

	f.jwksURI = endpoints.JWKSURI
	if f.logger != nil {
		f.logger.Debug("discovered JWKS URI", "issuer", f.issuerURL.String(), "jwks_uri", f.jwksURI)
	}
	return f.jwksURI, nil
}

// fetch downloads and parses the key set at jwksURI. The returned duration is
// the server's Cache-Control max-age, or zero when absent or out of bounds.
func (f *fetcher) fetch(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	if f.logger != nil {
		f.logger.Debug("fetched JWKS", "jwks_uri", jwksURI, "keys", set.Len())
	}
	return set, parseCacheControl(resp.Header.Get("Cache-Control")), nil
}

// parseCacheControl returns the max-age directive of a Cache-Control header
// when it lies between one second and seven days, and zero otherwise.
func parseCacheControl(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		value, ok := strings.CutPrefix(strings.TrimSpace(directive), "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}
		ttl := time.Duration(seconds) * time.Second
		if ttl < minCacheControl || ttl > maxCacheControl {
			return 0
		}
		return ttl
	}
	return 0
}

// Provider fetches the key set on every call. Prefer CachingProvider outside
// of tests and low-traffic tools.
type Provider struct {
	fetcher *fetcher
}

// NewProvider builds a Provider. WithIssuerURL is required.
func NewProvider(opts ...Option) (*Provider, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}
	return &Provider{fetcher: newFetcher(c)}, nil
}

// KeyFunc returns the issuer's current key set as a jwk.Set.
func (p *Provider) KeyFunc(ctx context.Context) (any, error) {
	jwksURI, err := p.fetcher.resolve(ctx)
	if err != nil {
		return nil, err
	}

	set, _, err := p.fetcher.fetch(ctx, jwksURI)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}
	return set, nil
}

// CachingProvider serves key sets from a Cache, in memory by default.
type CachingProvider struct {
	fetcher *fetcher
	cache   Cache
}

// NewCachingProvider builds a CachingProvider. WithIssuerURL is required.
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}

	f := newFetcher(c)
	cache := c.cache
	if cache == nil {
		cache = newMemoryCache(f.fetch, c.cacheTTL, c.now, c.logger)
	}

	return &CachingProvider{fetcher: f, cache: cache}, nil
}

// KeyFunc returns the cached key set as a jwk.Set. Safe for concurrent use.
func (c *CachingProvider) KeyFunc(ctx context.Context) (any, error) {
	jwksURI, err := c.fetcher.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return c.cache.Get(ctx, jwksURI)
}
