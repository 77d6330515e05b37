// Package observability sets up run tracing.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
)

const tracerName = "github.com/arnavshah/oh-scheduler-go"

// Init installs a stdout trace exporter when enabled and returns a
// shutdown function. When disabled the global no-op provider stays in
// place and shutdown does nothing.
func Init(ctx context.Context, log *logger.Logger, enabled bool) func(context.Context) error {
	if !enabled {
		return func(context.Context) error { return nil }
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Warn("otel exporter init failed (continuing)", "error", err)
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	log.Info("otel tracing initialized", "exporter", "stdout")
	return tp.Shutdown
}

// Tracer returns the tracer used for run spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
