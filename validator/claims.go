package validator

import (
	"context"
)

// ValidatedClaims is what a successful ValidateToken returns and what the
// middleware stores in the request context. It satisfies api.Principal.
// CustomClaims is nil unless WithCustomClaims was passed to New.
type ValidatedClaims struct {
	CustomClaims     CustomClaims
	RegisteredClaims RegisteredClaims

	claims map[string]any
}

// Subject returns the "sub" claim.
func (c *ValidatedClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Claims returns every claim of the token payload, untouched.
func (c *ValidatedClaims) Claims() map[string]any {
	return c.claims
}

// RegisteredClaims holds the RFC 7519 claims.
type RegisteredClaims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Expiry    int64    `json:"exp,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	ID        string   `json:"jti,omitempty"`
}

// CustomClaims is decoded from the token payload and then asked to Validate
// itself after the registered claims passed.
type CustomClaims interface {
	Validate(context.Context) error
}
