package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned for tokens with more segments than
	// any JWS or JWE compact serialization has.
	ErrExcessiveTokenDots = errors.New("token contains excessive dots")

	// ErrTokenEmpty is returned for an empty token string.
	ErrTokenEmpty = errors.New("token is empty")

	// ErrTokenTooLarge is returned for tokens over maxTokenSize bytes.
	ErrTokenTooLarge = errors.New("token exceeds maximum size")

	// ErrTokenNotCompact is returned for tokens that are not in compact
	// serialization, such as a JWS in JSON serialization.
	ErrTokenNotCompact = errors.New("token is not in compact serialization")
)

const (
	// JWS compact has 2 dots, JWE compact has 4.
	jwsCompactDots = 2
	jweCompactDots = 4
	maxTokenDots   = jweCompactDots
	maxTokenSize   = 1 << 20
)

// validateTokenFormat rejects obviously hostile input before it reaches the
// parser, where splitting a huge dot-separated string is expensive.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return ErrTokenEmpty
	}
	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}
	dots := strings.Count(tokenString, ".")
	if dots > maxTokenDots {
		return ErrExcessiveTokenDots
	}
	if dots != jwsCompactDots && dots != jweCompactDots {
		return ErrTokenNotCompact
	}
	if strings.HasPrefix(strings.TrimSpace(tokenString), "{") {
		return ErrTokenNotCompact
	}
	return nil
}
