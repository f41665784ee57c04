package jwtmiddleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/oauth-demo/core"
)

var (
	// ErrJWTMissing is passed to the ErrorHandler when no token was found and
	// credentials are required.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid matches every validation failure passed to the ErrorHandler.
	ErrJWTInvalid = core.ErrJWTInvalid

	// ErrTokenExtraction matches errors returned by the TokenExtractor, such
	// as an Authorization header that is not in Bearer form.
	ErrTokenExtraction = errors.New("error extracting token")
)

// JWTMiddleware guards http.Handlers with bearer token authentication.
type JWTMiddleware struct {
	core              *core.Core
	errorHandler      ErrorHandler
	tokenExtractor    TokenExtractor
	validateOnOptions bool
	logger            core.Logger
	metrics           Metrics
	tracer            trace.Tracer

	// Only used while New assembles core.
	validator           core.Validator
	credentialsOptional bool
}

// New builds a JWTMiddleware. WithValidator is required.
func New(opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.validator == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrValidatorNil)
	}

	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
	if m.metrics == nil {
		m.metrics = NoopMetrics{}
	}
	if m.tracer == nil {
		m.tracer = defaultTracer()
	}

	coreOpts := []core.Option{
		core.WithValidator(m.validator),
		core.WithCredentialsOptional(m.credentialsOptional),
	}
	if m.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(m.logger))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	m.core = c

	return m, nil
}

// GetClaims returns the principal CheckJWT stored in ctx.
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// HasClaims reports whether ctx carries a principal.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// CheckJWT returns a handler that calls next only for requests whose token
// validates, or that carry no token when credentials are optional.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.debug("skipping JWT validation for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		ctx, principal, err := m.Authenticate(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		if principal == nil {
			m.debug("no credentials provided, continuing without claims")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r.WithContext(core.SetClaims(ctx, principal)))
	})
}

// Authenticate runs one token check for r inside a span and records its
// outcome. The returned context carries the span; the principal is nil when
// no token was sent and credentials are optional. Framework adapters call it
// directly.
func (m *JWTMiddleware) Authenticate(r *http.Request) (context.Context, any, error) {
	ctx, span := m.tracer.Start(r.Context(), "jwtmiddleware.CheckJWT",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	start := timeNow()
	principal, err := m.authenticate(ctx, r)
	result := resultOf(principal, err)

	m.metrics.ObserveTokenCheck(result, timeNow().Sub(start))
	span.SetAttributes(attribute.String("auth.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}

	return ctx, principal, err
}

func (m *JWTMiddleware) authenticate(ctx context.Context, r *http.Request) (any, error) {
	m.debug("extracting JWT from request", "method", r.Method, "path", r.URL.Path)

	token, err := m.tokenExtractor(r)
	if err != nil {
		if m.logger != nil {
			m.logger.Error("failed to extract token from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenExtraction, err)
	}

	principal, err := m.core.CheckToken(ctx, token)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("JWT validation failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		if errors.Is(err, ErrJWTMissing) {
			return nil, err
		}
		return nil, &invalidError{details: err}
	}

	return principal, nil
}

func (m *JWTMiddleware) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// invalidError makes any validator error match ErrJWTInvalid while keeping
// the original reachable through errors.As.
type invalidError struct {
	details error
}

func (e *invalidError) Is(target error) bool {
	return target == ErrJWTInvalid
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJWTInvalid, e.details)
}

func (e *invalidError) Unwrap() error {
	return e.details
}
