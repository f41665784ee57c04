package core

import "errors"

var (
	// ErrJWTMissing is returned when a request carries no token and
	// credentials are required.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid matches every *ValidationError through errors.Is.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrClaimsNotFound is returned when no principal is stored in a context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// ValidationError describes why a token was rejected.
type ValidationError struct {
	// Code is machine readable, one of the ErrorCode constants.
	Code string

	// Message is safe to show to the caller.
	Message string

	// Details is the underlying error, if any.
	Details error
}

func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is makes every ValidationError match ErrJWTInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrJWTInvalid
}

const (
	ErrorCodeTokenMissing     = "token_missing"
	ErrorCodeTokenMalformed   = "token_malformed"
	ErrorCodeTokenExpired     = "token_expired"
	ErrorCodeTokenNotYetValid = "token_not_yet_valid"
	ErrorCodeInvalidSignature = "invalid_signature"
	ErrorCodeInvalidAlgorithm = "invalid_algorithm"
	ErrorCodeInvalidIssuer    = "invalid_issuer"
	ErrorCodeInvalidAudience  = "invalid_audience"
	ErrorCodeInvalidClaims    = "invalid_claims"
	ErrorCodeJWKSFetchFailed  = "jwks_fetch_failed"
	ErrorCodeValidatorNotSet  = "validator_not_set"
	ErrorCodeClaimsNotFound   = "claims_not_found"
)

// NewValidationError builds a *ValidationError.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
