package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engines the HTTP API can run on.
const (
	EngineChi  = "chi"
	EngineGin  = "gin"
	EngineEcho = "echo"
)

// Config is everything New needs to assemble the service.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// GRPCAddr is the gRPC listen address. Empty disables gRPC.
	GRPCAddr string
	// Engine selects the HTTP router.
	Engine string

	Issuer    string
	Audiences []string
	Algorithm string
	// JWKSURI skips OIDC discovery when set.
	JWKSURI string
	// SigningSecret selects a static HMAC key instead of a JWKS. HS* only.
	SigningSecret string
	JWKSCacheTTL  time.Duration
	ClockSkew     time.Duration

	// TokenCookie and TokenQueryParam are read after the Authorization
	// header when set.
	TokenCookie     string
	TokenQueryParam string

	// Metrics serves Prometheus metrics at /metrics.
	Metrics bool

	ShutdownTimeout time.Duration
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}

	switch c.Engine {
	case EngineChi, EngineGin, EngineEcho:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q, expected chi, gin or echo", c.Engine))
	}

	if c.Issuer == "" {
		errs = append(errs, errors.New("issuer is required"))
	} else if _, err := url.ParseRequestURI(c.Issuer); err != nil && c.SigningSecret == "" {
		errs = append(errs, fmt.Errorf("issuer must be a URL when keys are discovered: %w", err))
	}

	if len(c.Audiences) == 0 {
		errs = append(errs, errors.New("at least one audience is required"))
	}

	hmac := strings.HasPrefix(c.Algorithm, "HS")
	switch {
	case c.Algorithm == "":
		errs = append(errs, errors.New("algorithm is required"))
	case c.SigningSecret != "" && !hmac:
		errs = append(errs, fmt.Errorf("a signing secret only works with HS256, HS384 or HS512, not %s", c.Algorithm))
	case c.SigningSecret == "" && hmac:
		errs = append(errs, fmt.Errorf("%s needs a signing secret", c.Algorithm))
	}

	if c.SigningSecret != "" && c.JWKSURI != "" {
		errs = append(errs, errors.New("signing secret and JWKS URI are mutually exclusive"))
	}
	if c.JWKSURI != "" {
		if _, err := url.ParseRequestURI(c.JWKSURI); err != nil {
			errs = append(errs, fmt.Errorf("invalid JWKS URI: %w", err))
		}
	}

	if c.JWKSCacheTTL < 0 {
		errs = append(errs, errors.New("JWKS cache TTL cannot be negative"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("clock skew cannot be negative"))
	}

	return errors.Join(errs...)
}
