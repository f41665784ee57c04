package core

import (
	"errors"
	"time"
)

// Option configures a Core.
type Option func(*Core) error

// New builds a Core. WithValidator is required.
//
//	c, err := core.New(
//	    core.WithValidator(v),
//	    core.WithLogger(logger),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{
		credentialsOptional: false,
		now:                 time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.validator == nil {
		return nil, NewValidationError(
			ErrorCodeValidatorNotSet,
			"validator is required but not set (use WithValidator option)",
			nil,
		)
	}

	return c, nil
}

// WithValidator sets the token validator.
func WithValidator(validator Validator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through with no
// principal in their context. Default: false.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger used for validation outcomes and timings.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithClock overrides the time source used to measure validation duration.
func WithClock(now func() time.Time) Option {
	return func(c *Core) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}
