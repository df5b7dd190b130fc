// Package telemetry sets up OpenTelemetry tracing.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/config"
)

// TracerName is the instrumentation scope for NeuroAssist spans.
const TracerName = "github.com/pbaille/neuroassist"

var (
	initOnce sync.Once
	shutdown = func(context.Context) error { return nil }
	initErr  error
)

// Init installs the global tracer provider once. When tracing is disabled
// the global no-op provider stays in place. The returned function flushes
// and stops the provider.
func Init(ctx context.Context, log *zap.Logger, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	initOnce.Do(func() {
		if !cfg.Enabled {
			return
		}

		res, err := resource.New(ctx,
			resource.WithAttributes(
				attribute.String("service.name", cfg.ServiceName),
				attribute.String("service.component", cfg.ServiceName),
			),
		)
		if err != nil {
			log.Warn("otel resource init failed (continuing)", zap.Error(err))
		}

		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			initErr = fmt.Errorf("create trace exporter: %w", err)
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		shutdown = tp.Shutdown

		log.Info("otel tracing initialized",
			zap.String("service", cfg.ServiceName),
			zap.String("exporter", cfg.Exporter),
			zap.String("endpoint", cfg.Endpoint))
	})
	return shutdown, initErr
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == "otlp" {
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
