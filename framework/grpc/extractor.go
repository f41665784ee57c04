package jwtgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor pulls the raw token out of the incoming metadata. No token
// is "" with a nil error.
type TokenExtractor func(ctx context.Context) (string, error)

var (
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")
	ErrInvalidAuthFormat   = errors.New("invalid authorization metadata format, expected: Bearer <token>")
	ErrUnsupportedScheme   = errors.New("unsupported authorization scheme, expected: Bearer")
)

// MetadataTokenExtractor reads "authorization: Bearer <token>". gRPC
// lowercases incoming metadata keys.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
	default:
		return "", ErrMultipleAuthHeaders
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 {
		return "", ErrInvalidAuthFormat
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrUnsupportedScheme
	}

	return parts[1], nil
}
