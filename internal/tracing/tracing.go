// Package tracing wires OpenTelemetry spans around event dispatch.
// It is development tooling: enabled with --trace, spans land in a
// JSONL file or on stderr.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"quoterm/internal/config"
	"quoterm/internal/log"
)

// Init builds a tracer provider from config. Returns the tracer and a
// shutdown function that flushes pending spans.
func Init(cfg config.TraceConfig) (trace.Tracer, func(context.Context) error, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	if cfg.Path != "" {
		exporter, err = NewFileExporter(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file exporter: %w", err)
		}
		log.Info(log.CatTrace, "tracing to file", "path", cfg.Path)
	} else {
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		log.Info(log.CatTrace, "tracing to stderr")
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return tp.Tracer("quoterm/bus"), tp.Shutdown, nil
}
