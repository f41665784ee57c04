package jwtgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/oauth-demo/core"
)

// ErrorHandler turns an extraction or validation error into the error the
// call fails with.
type ErrorHandler func(error) error

// DefaultErrorHandler returns a status error: InvalidArgument for malformed
// metadata, Internal when the key set is unavailable and Unauthenticated for
// everything else.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMultipleAuthHeaders) ||
		errors.Is(err, ErrInvalidAuthFormat) ||
		errors.Is(err, ErrUnsupportedScheme) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	if errors.Is(err, core.ErrJWTMissing) {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return mapValidationError(validationErr)
	}

	return status.Error(codes.Unauthenticated, "invalid or malformed token")
}

func mapValidationError(err *core.ValidationError) error {
	switch err.Code {
	case core.ErrorCodeJWKSFetchFailed:
		return status.Error(codes.Internal, "unable to verify token")
	case core.ErrorCodeTokenExpired:
		return status.Error(codes.Unauthenticated, "token expired")
	case core.ErrorCodeTokenNotYetValid:
		return status.Error(codes.Unauthenticated, "token not yet valid")
	case core.ErrorCodeInvalidIssuer:
		return status.Error(codes.Unauthenticated, "invalid issuer")
	case core.ErrorCodeInvalidAudience:
		return status.Error(codes.Unauthenticated, "invalid audience")
	case core.ErrorCodeInvalidSignature:
		return status.Error(codes.Unauthenticated, "invalid signature")
	case core.ErrorCodeTokenMalformed:
		return status.Error(codes.Unauthenticated, "malformed token")
	case core.ErrorCodeInvalidAlgorithm:
		return status.Error(codes.Unauthenticated, "invalid algorithm")
	default:
		return status.Error(codes.Unauthenticated, "invalid token")
	}
}
