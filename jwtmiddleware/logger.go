package jwtmiddleware

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/example/oauth-demo/core"
)

const badKey = "!BADKEY"

// NewLogrusLogger adapts a logrus.FieldLogger. Key/value pairs become fields.
func NewLogrusLogger(l logrus.FieldLogger) core.Logger {
	return &logrusLogger{l: l}
}

type logrusLogger struct{ l logrus.FieldLogger }

func (a *logrusLogger) Debug(msg string, args ...any) { a.with(args).Debug(msg) }
func (a *logrusLogger) Info(msg string, args ...any)  { a.with(args).Info(msg) }
func (a *logrusLogger) Warn(msg string, args ...any)  { a.with(args).Warn(msg) }
func (a *logrusLogger) Error(msg string, args ...any) { a.with(args).Error(msg) }

func (a *logrusLogger) with(args []any) logrus.FieldLogger {
	if len(args) == 0 {
		return a.l
	}
	fields := make(logrus.Fields, (len(args)+1)/2)
	for k, v := range pairs(args) {
		fields[k] = v
	}
	return a.l.WithFields(fields)
}

// NewZapLogger adapts a zap.SugaredLogger, which already takes key/value
// pairs.
func NewZapLogger(l *zap.SugaredLogger) core.Logger {
	return &zapLogger{l: l}
}

type zapLogger struct{ l *zap.SugaredLogger }

func (a *zapLogger) Debug(msg string, args ...any) { a.l.Debugw(msg, args...) }
func (a *zapLogger) Info(msg string, args ...any)  { a.l.Infow(msg, args...) }
func (a *zapLogger) Warn(msg string, args ...any)  { a.l.Warnw(msg, args...) }
func (a *zapLogger) Error(msg string, args ...any) { a.l.Errorw(msg, args...) }

// NewZerologLogger adapts a zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) core.Logger {
	return &zerologLogger{l: l}
}

type zerologLogger struct{ l zerolog.Logger }

func (a *zerologLogger) Debug(msg string, args ...any) { a.emit(a.l.Debug(), msg, args) }
func (a *zerologLogger) Info(msg string, args ...any)  { a.emit(a.l.Info(), msg, args) }
func (a *zerologLogger) Warn(msg string, args ...any)  { a.emit(a.l.Warn(), msg, args) }
func (a *zerologLogger) Error(msg string, args ...any) { a.emit(a.l.Error(), msg, args) }

func (a *zerologLogger) emit(e *zerolog.Event, msg string, args []any) {
	for k, v := range pairs(args) {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

// pairs walks slog-style alternating keys and values. A non-string key is
// formatted with %v; a trailing value without a key is reported under badKey.
func pairs(args []any) func(yield func(string, any) bool) {
	return func(yield func(string, any) bool) {
		for i := 0; i < len(args); i += 2 {
			if i+1 == len(args) {
				yield(badKey, args[i])
				return
			}
			key, ok := args[i].(string)
			if !ok {
				key = fmt.Sprint(args[i])
			}
			if !yield(key, args[i+1]) {
				return
			}
		}
	}
}
