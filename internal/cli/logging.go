package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/oauth-demo/core"
	"github.com/example/oauth-demo/jwtmiddleware"
)

// LogOptions select how the process logs.
type LogOptions struct {
	Level   string `enum:"debug,info,warn,error" default:"info" help:"Set the logging level."`
	Format  string `enum:"text,json" default:"text" help:"Log output format."`
	Backend string `enum:"logrus,zap,zerolog" default:"logrus" help:"Logger used for authentication events."`
}

// Loggers are the two sinks a running server writes to. Access and lifecycle
// logs always go through logrus; Auth goes through the selected backend.
type Loggers struct {
	Process *logrus.Logger
	Auth    core.Logger
}

// Build creates the loggers the options describe, writing to w.
func (o LogOptions) Build(w io.Writer) (*Loggers, error) {
	level, err := logrus.ParseLevel(o.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	process := logrus.New()
	process.SetOutput(w)
	process.SetLevel(level)
	if o.Format == "json" {
		process.SetFormatter(&logrus.JSONFormatter{})
	} else {
		process.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	loggers := &Loggers{Process: process}

	switch o.Backend {
	case "zap":
		zapLevel, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		var encoder zapcore.Encoder
		if o.Format == "json" {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}
		zcore := zapcore.NewCore(encoder, zapcore.AddSync(w), zapLevel)
		loggers.Auth = jwtmiddleware.NewZapLogger(zap.New(zcore).Sugar())
	case "zerolog":
		zerologLevel, err := zerolog.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		out := w
		if o.Format != "json" {
			out = zerolog.ConsoleWriter{Out: w, NoColor: true}
		}
		loggers.Auth = jwtmiddleware.NewZerologLogger(
			zerolog.New(out).Level(zerologLevel).With().Timestamp().Logger(),
		)
	case "logrus", "":
		loggers.Auth = jwtmiddleware.NewLogrusLogger(process)
	default:
		return nil, fmt.Errorf("unknown log backend %q", strings.ToLower(o.Backend))
	}

	return loggers, nil
}
