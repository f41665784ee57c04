package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oauth-demo/internal/oidc"
)

func Test_Provider(t *testing.T) {
	expectedJWKS := generateJWKS(t, "kid")
	expectedCustomJWKS := generateJWKS(t, "custom-kid")

	var requestCount int32
	testServer := setupTestServer(t, expectedJWKS, expectedCustomJWKS, &requestCount)
	defer testServer.Close()

	testServerURL, err := url.Parse(testServer.URL)
	require.NoError(t, err)

	t.Run("it fetches the JWKS after calling the discovery endpoint", func(t *testing.T) {
		provider, err := NewProvider(WithIssuerURL(testServerURL))
		require.NoError(t, err)

		actual, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "kid", firstKeyID(t, actual))
	})

	t.Run("it skips discovery when a custom JWKS URI is set", func(t *testing.T) {
		customJWKSURI, err := url.Parse(testServer.URL + "/custom/jwks.json")
		require.NoError(t, err)

		provider, err := NewProvider(
			WithIssuerURL(testServerURL),
			WithCustomJWKSURI(customJWKSURI),
		)
		require.NoError(t, err)

		before := atomic.LoadInt32(&requestCount)
		actual, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "custom-kid", firstKeyID(t, actual))
		assert.Equal(t, before+1, atomic.LoadInt32(&requestCount))
	})

	t.Run("it uses the specified custom client", func(t *testing.T) {
		client := &http.Client{Timeout: time.Hour}
		provider, err := NewProvider(
			WithIssuerURL(testServerURL),
			WithCustomClient(client),
		)
		require.NoError(t, err)
		assert.Same(t, client, provider.fetcher.client)
	})

	t.Run("it stops fetching when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		provider, err := NewProvider(WithIssuerURL(testServerURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("it rejects a malformed JWKS URI from discovery", func(t *testing.T) {
		malformedURL, err := url.Parse(testServer.URL + "/malformed")
		require.NoError(t, err)

		provider, err := NewProvider(WithIssuerURL(malformedURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background())
		assert.ErrorContains(t, err, "could not parse JWKS URI from well known endpoints")
	})

	t.Run("it requires an issuer URL", func(t *testing.T) {
		_, err := NewProvider()
		assert.ErrorContains(t, err, "issuer URL is required")
	})

	t.Run("it rejects nil option values", func(t *testing.T) {
		for name, opt := range map[string]Option{
			"issuer":   WithIssuerURL(nil),
			"jwks uri": WithCustomJWKSURI(nil),
			"client":   WithCustomClient(nil),
			"cache":    WithCache(nil),
			"logger":   WithLogger(nil),
			"clock":    WithClock(nil),
		} {
			_, err := NewProvider(WithIssuerURL(testServerURL), opt)
			assert.Error(t, err, name)
		}
	})
}

func Test_CachingProvider(t *testing.T) {
	expectedJWKS := generateJWKS(t, "kid")

	t.Run("it fetches once across concurrent callers", func(t *testing.T) {
		var requestCount int32
		testServer := setupTestServer(t, expectedJWKS, expectedJWKS, &requestCount)
		defer testServer.Close()

		testServerURL, err := url.Parse(testServer.URL)
		require.NoError(t, err)

		provider, err := NewCachingProvider(WithIssuerURL(testServerURL), WithCacheTTL(5*time.Minute))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				actual, err := provider.KeyFunc(context.Background())
				assert.NoError(t, err)
				assert.NotNil(t, actual)
			}()
		}
		wg.Wait()

		// One discovery request and one JWKS request.
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("it retries discovery after a failure", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)

		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/.well-known/openid-configuration":
				if fail.Load() {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_ = json.NewEncoder(w).Encode(oidc.WellKnownEndpoints{JWKSURI: server.URL + "/.well-known/jwks.json"})
			case "/.well-known/jwks.json":
				_ = json.NewEncoder(w).Encode(expectedJWKS)
			}
		}))
		defer server.Close()

		issuerURL, err := url.Parse(server.URL)
		require.NoError(t, err)

		provider, err := NewCachingProvider(WithIssuerURL(issuerURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background())
		assert.ErrorContains(t, err, "failed to discover JWKS URI")

		fail.Store(false)
		actual, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "kid", firstKeyID(t, actual))
	})

	t.Run("it replaces a zero TTL with the default", func(t *testing.T) {
		issuerURL, _ := url.Parse("https://example.com")
		provider, err := NewCachingProvider(WithIssuerURL(issuerURL), WithCacheTTL(0))
		require.NoError(t, err)

		cache, ok := provider.cache.(*memoryCache)
		require.True(t, ok)
		assert.Equal(t, 15*time.Minute, cache.ttl)
	})

	t.Run("it rejects a negative TTL", func(t *testing.T) {
		issuerURL, _ := url.Parse("https://example.com")
		_, err := NewCachingProvider(WithIssuerURL(issuerURL), WithCacheTTL(-time.Second))
		assert.ErrorContains(t, err, "cache TTL cannot be negative")
	})

	t.Run("it uses a custom cache", func(t *testing.T) {
		issuerURL, _ := url.Parse("https://example.com")
		jwksURL, _ := url.Parse("https://example.com/jwks")
		cache := &stubCache{set: expectedJWKS}

		provider, err := NewCachingProvider(
			WithIssuerURL(issuerURL),
			WithCustomJWKSURI(jwksURL),
			WithCache(cache),
		)
		require.NoError(t, err)

		actual, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)
		assert.Equal(t, expectedJWKS, actual)
		assert.Equal(t, "https://example.com/jwks", cache.gotURI)
	})

	t.Run("it returns cache errors", func(t *testing.T) {
		issuerURL, _ := url.Parse("https://example.com")
		jwksURL, _ := url.Parse("https://example.com/jwks")

		provider, err := NewCachingProvider(
			WithIssuerURL(issuerURL),
			WithCustomJWKSURI(jwksURL),
			WithCache(&stubCache{err: errors.New("cache down")}),
		)
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background())
		assert.EqualError(t, err, "cache down")
	})
}

func Test_memoryCache(t *testing.T) {
	set := generateJWKS(t, "kid")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newCache := func(maxAge time.Duration, err error) (*memoryCache, *int32, *time.Time) {
		var calls int32
		now := start
		fetch := func(context.Context, string) (jwk.Set, time.Duration, error) {
			atomic.AddInt32(&calls, 1)
			if err != nil {
				return nil, 0, err
			}
			return set, maxAge, nil
		}
		clock := func() time.Time { return now }
		return newMemoryCache(fetch, 10*time.Minute, clock, nil), &calls, &now
	}

	t.Run("it serves from cache until expiry", func(t *testing.T) {
		cache, calls, now := newCache(0, nil)

		_, err := cache.Get(context.Background(), "uri")
		require.NoError(t, err)
		*now = start.Add(5 * time.Minute)
		_, err = cache.Get(context.Background(), "uri")
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))

		*now = start.Add(11 * time.Minute)
		_, err = cache.Get(context.Background(), "uri")
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	})

	t.Run("it refreshes in the background after 80% of the TTL", func(t *testing.T) {
		cache, calls, now := newCache(0, nil)

		_, err := cache.Get(context.Background(), "uri")
		require.NoError(t, err)

		*now = start.Add(9 * time.Minute)
		actual, err := cache.Get(context.Background(), "uri")
		require.NoError(t, err)
		assert.Equal(t, set, actual)

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(calls) == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("it honours a longer max-age", func(t *testing.T) {
		cache, calls, now := newCache(time.Hour, nil)

		_, err := cache.Get(context.Background(), "uri")
		require.NoError(t, err)

		*now = start.Add(30 * time.Minute)
		_, err = cache.Get(context.Background(), "uri")
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	})

	t.Run("it does not cache failures", func(t *testing.T) {
		cache, calls, _ := newCache(0, errors.New("boom"))

		_, err := cache.Get(context.Background(), "uri")
		assert.ErrorContains(t, err, "could not fetch JWKS: boom")
		_, err = cache.Get(context.Background(), "uri")
		assert.Error(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	})
}

func Test_parseCacheControl(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{header: "", want: 0},
		{header: "max-age=3600", want: time.Hour},
		{header: "public, max-age=60, must-revalidate", want: time.Minute},
		{header: "max-age=0", want: 0},
		{header: "max-age=-5", want: 0},
		{header: "max-age=abc", want: 0},
		{header: "max-age=604800", want: 7 * 24 * time.Hour},
		{header: "max-age=604801", want: 0},
		{header: "no-cache", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCacheControl(tt.header))
		})
	}
}

func Test_fetch(t *testing.T) {
	set := generateJWKS(t, "kid")

	t.Run("it reads Cache-Control", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=7200")
			_ = json.NewEncoder(w).Encode(set)
		}))
		defer server.Close()

		f := &fetcher{client: server.Client()}
		actual, maxAge, err := f.fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, 1, actual.Len())
		assert.Equal(t, 2*time.Hour, maxAge)
	})

	t.Run("it rejects non-200 responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		f := &fetcher{client: server.Client()}
		_, _, err := f.fetch(context.Background(), server.URL)
		assert.ErrorContains(t, err, "request returned status 500")
	})

	t.Run("it rejects a body that is not a key set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer server.Close()

		f := &fetcher{client: server.Client()}
		_, _, err := f.fetch(context.Background(), server.URL)
		assert.ErrorContains(t, err, "failed to parse JWKS")
	})
}

type stubCache struct {
	set    jwk.Set
	err    error
	gotURI string
}

func (s *stubCache) Get(_ context.Context, jwksURI string) (jwk.Set, error) {
	s.gotURI = jwksURI
	return s.set, s.err
}

func firstKeyID(t *testing.T, keys any) string {
	t.Helper()

	set, ok := keys.(jwk.Set)
	require.True(t, ok, "expected jwk.Set, got %T", keys)
	key, ok := set.Key(0)
	require.True(t, ok, "expected at least one key")
	return key.KeyID()
}

func generateJWKS(t *testing.T, kid string) jwk.Set {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))
	return set
}

func setupTestServer(t *testing.T, jwks, customJWKS jwk.Set, requestCount *int32) (server *httptest.Server) {
	t.Helper()

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requestCount, 1)

		switch r.URL.Path {
		case "/malformed/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(oidc.WellKnownEndpoints{JWKSURI: ":"})
		case "/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(oidc.WellKnownEndpoints{
				Issuer:  server.URL,
				JWKSURI: server.URL + "/.well-known/jwks.json",
			})
		case "/.well-known/jwks.json":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(jwks)
		case "/custom/jwks.json":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(customJWKS)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server
}
