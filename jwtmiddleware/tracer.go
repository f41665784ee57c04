package jwtmiddleware

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/example/oauth-demo/jwtmiddleware"

// defaultTracer resolves the global provider at construction time, so a
// provider installed with otel.SetTracerProvider before New is honoured.
func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
