package jwtgrpc

import (
	"errors"

	"github.com/example/oauth-demo/core"
)

// Option configures the JWTInterceptor.
type Option func(*JWTInterceptor) error

// WithValidator sets the token validator. Required.
func WithValidator(v core.Validator) Option {
	return func(i *JWTInterceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.validator = v
		return nil
	}
}

// WithCredentialsOptional lets calls without a token through with no
// principal. Default: false.
func WithCredentialsOptional(optional bool) Option {
	return func(i *JWTInterceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger shared by the interceptor and its core.
func WithLogger(logger core.Logger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor replaces MetadataTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips validation for the given full method names,
// such as "/oauthdemo.Hello/PublicHello".
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
