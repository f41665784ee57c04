// Package core holds the transport-independent part of bearer token
// authentication: deciding what an absent token means, running the
// configured validator and carrying the resulting principal in a context.
package core

import (
	"context"
	"time"
)

// Validator verifies a raw token and returns whatever represents the
// authenticated caller. *validator.Validator satisfies it.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// Logger is the structured logging surface shared by every layer of the
// authentication stack. *slog.Logger satisfies it, as do the adapters in the
// jwtmiddleware package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core runs token checks for the HTTP, gin, echo and gRPC adapters.
type Core struct {
	validator           Validator
	credentialsOptional bool
	logger              Logger
	now                 func() time.Time
}

// CheckToken validates token and returns the principal produced by the
// validator.
//
// An empty token yields (nil, nil) when credentials are optional and
// ErrJWTMissing otherwise. Validator errors are returned as-is so callers
// can inspect them with errors.As for a *ValidationError.
func (c *Core) CheckToken(ctx context.Context, token string) (any, error) {
	if token == "" {
		if c.credentialsOptional {
			c.debug("no token provided, credentials are optional")
			return nil, nil
		}
		if c.logger != nil {
			c.logger.Warn("no token provided, credentials are required")
		}
		return nil, ErrJWTMissing
	}

	start := c.now()
	principal, err := c.validator.ValidateToken(ctx, token)
	elapsed := c.now().Sub(start)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("token validation failed", "error", err, "duration", elapsed)
		}
		return nil, err
	}

	c.debug("token validated successfully", "duration", elapsed)
	return principal, nil
}

// CredentialsOptional reports whether requests without a token are let through.
func (c *Core) CredentialsOptional() bool {
	return c.credentialsOptional
}

func (c *Core) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
