package core

import "context"

// contextKey is unexported so no other package can collide with it.
type contextKey int

const (
	claimsKey contextKey = iota
)

// GetClaims returns the principal stored by SetClaims as a T.
//
// It fails with ErrClaimsNotFound when nothing was stored and with a
// claims_not_found *ValidationError when the stored value is not a T.
//
//	p, err := core.GetClaims[api.Principal](r.Context())
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	val := ctx.Value(claimsKey)
	if val == nil {
		return zero, ErrClaimsNotFound
	}

	claims, ok := val.(T)
	if !ok {
		return zero, NewValidationError(ErrorCodeClaimsNotFound, "claims type assertion failed", nil)
	}

	return claims, nil
}

// SetClaims returns a copy of ctx carrying claims.
func SetClaims(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// HasClaims reports whether ctx carries claims.
func HasClaims(ctx context.Context) bool {
	return ctx.Value(claimsKey) != nil
}
