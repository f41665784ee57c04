package jwtmiddleware

import (
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/example/oauth-demo/core"
)

// Option configures the JWTMiddleware.
type Option func(*JWTMiddleware) error

var (
	ErrValidatorNil      = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil   = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")
	ErrLoggerNil         = errors.New("logger cannot be nil")
	ErrMetricsNil        = errors.New("metrics cannot be nil")
	ErrTracerNil         = errors.New("tracer cannot be nil")
)

// WithValidator sets the token validator. Required; *validator.Validator
// satisfies core.Validator.
func WithValidator(v core.Validator) Option {
	return func(m *JWTMiddleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		m.validator = v
		return nil
	}
}

// WithCredentialsOptional lets requests without a token reach the next
// handler with no principal. Default: false.
func WithCredentialsOptional(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions controls whether OPTIONS requests are checked.
// Default: true.
func WithValidateOnOptions(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor replaces AuthHeaderTokenExtractor.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *JWTMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithLogger sets the logger shared by the middleware and its core.
// *slog.Logger works, as do NewLogrusLogger, NewZapLogger and
// NewZerologLogger.
func WithLogger(logger core.Logger) Option {
	return func(m *JWTMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics records the outcome and duration of every check.
func WithMetrics(metrics Metrics) Option {
	return func(m *JWTMiddleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer for the per-check span. Defaults to the global
// OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *JWTMiddleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}
