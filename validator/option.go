package validator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option configures a Validator.
type Option func(*Validator) error

// WithKeyFunc sets the function that supplies the verification key. It may
// return a jwk.Set (see jwks.CachingProvider.KeyFunc), a jwk.Key or a raw
// key. Required.
func WithKeyFunc(keyFunc func(context.Context) (any, error)) Option {
	return func(v *Validator) error {
		if keyFunc == nil {
			return errors.New("keyFunc cannot be nil")
		}
		v.keyFunc = keyFunc
		return nil
	}
}

// WithAlgorithm sets the only "alg" tokens may be signed with. Required.
func WithAlgorithm(algorithm SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if _, ok := allowedSigningAlgorithms[algorithm]; !ok {
			return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
		}
		v.signatureAlgorithm = algorithm
		return nil
	}
}

// WithIssuer sets the expected "iss" claim. Required.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuerURL
		return nil
	}
}

// WithAudience sets the single expected "aud" value.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audiences = []string{audience}
		return nil
	}
}

// WithAudiences accepts tokens whose "aud" contains at least one of audiences.
func WithAudiences(audiences []string) Option {
	return func(v *Validator) error {
		if len(audiences) == 0 {
			return errors.New("audiences cannot be empty")
		}
		for i, aud := range audiences {
			if aud == "" {
				return fmt.Errorf("audience at index %d cannot be empty", i)
			}
		}
		v.audiences = append([]string(nil), audiences...)
		return nil
	}
}

// WithAllowedClockSkew sets the leeway applied to exp, nbf and iat.
// Default: 0.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// WithCustomClaims sets a constructor for per-token custom claims.
func WithCustomClaims(f func() CustomClaims) Option {
	return func(v *Validator) error {
		if f == nil {
			return errors.New("custom claims function cannot be nil")
		}
		v.customClaims = f
		return nil
	}
}

// WithClock overrides the time source for exp, nbf and iat checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
