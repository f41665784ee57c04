// Package jwtgrpc authenticates gRPC calls with bearer tokens carried in the
// "authorization" metadata entry.
package jwtgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/example/oauth-demo/core"
)

// JWTInterceptor validates the bearer token of every call that is not
// excluded and stores the principal in the handler's context.
type JWTInterceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          core.Logger

	// Only used while New assembles core.
	validator           core.Validator
	credentialsOptional bool
}

// New builds a JWTInterceptor. WithValidator is required.
func New(opts ...Option) (*JWTInterceptor, error) {
	i := &JWTInterceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}

	if i.validator == nil {
		return nil, errors.New("validator is required, use WithValidator option")
	}

	coreOpts := []core.Option{
		core.WithValidator(i.validator),
		core.WithCredentialsOptional(i.credentialsOptional),
	}
	if i.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(i.logger))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return nil, err
	}
	i.core = c

	return i, nil
}

// UnaryServerInterceptor returns the interceptor for unary calls.
func (i *JWTInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.debug("skipping JWT validation for excluded method", "method", info.FullMethod)
			return handler(ctx, req)
		}

		ctx, err := i.validateRequest(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns the interceptor for streaming calls.
func (i *JWTInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if i.excludedMethods[info.FullMethod] {
			i.debug("skipping JWT validation for excluded method", "method", info.FullMethod)
			return handler(srv, ss)
		}

		ctx, err := i.validateRequest(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func (i *JWTInterceptor) validateRequest(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Error("failed to extract token from gRPC metadata", "error", err, "method", method)
		}
		return ctx, i.errorHandler(err)
	}

	claims, err := i.core.CheckToken(ctx, token)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("JWT validation failed", "error", err, "method", method)
		}
		return ctx, i.errorHandler(err)
	}

	if claims == nil {
		i.debug("no credentials provided, continuing without claims", "method", method)
		return ctx, nil
	}

	return core.SetClaims(ctx, claims), nil
}

func (i *JWTInterceptor) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}

// GetClaims returns the principal the interceptor stored in ctx.
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
