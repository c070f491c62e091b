// Package telemetry configures the OpenTelemetry tracing SDK. Spans are
// exported as JSON lines to a writer, stdout by default.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"taskManager/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	ServiceName string
	// Writer receives the exported spans. Nil means os.Stdout.
	Writer io.Writer
}

func NewTracerProvider(opts Options) (*sdktrace.TracerProvider, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(writer))
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
		)),
	), nil
}

// Setup installs a tracer provider and W3C trace-context propagation as the
// process-wide defaults. The returned func flushes pending spans.
func Setup(opts Options) (*sdktrace.TracerProvider, func(), error) {
	provider, err := NewTracerProvider(opts)
	if err != nil {
		return nil, nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("Telemetry: failed to flush spans", err)
		}
	}
	return provider, shutdown, nil
}
