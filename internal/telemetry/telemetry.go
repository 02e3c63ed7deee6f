// Package telemetry wires OpenTelemetry metrics and traces with rotating
// file exporters, so the prototype can be inspected without running a
// collector.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "carebridge"

// Metrics holds the instruments the services record on.
type Metrics struct {
	ChatRequests       metric.Int64Counter
	ChatFailures       metric.Int64Counter
	Extractions        metric.Int64Counter
	ExtractionFailures metric.Int64Counter
	ExtractionSeconds  metric.Float64Histogram
}

func rotatingWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// Init sets up the global tracer and meter providers with file exporters
// under logDir and returns the service instruments plus a shutdown func.
func Init(ctx context.Context, logDir string) (trace.Tracer, *Metrics, func(), error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceFile := rotatingWriter(filepath.Join(logDir, "carebridge_traces.log"))
	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricsFile := rotatingWriter(filepath.Join(logDir, "carebridge_metrics.log"))
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsFile))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(10*time.Second),
		)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	metrics, err := NewMetrics(mp.Meter(serviceName))
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
		if err := mp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown meter provider", "error", err)
		}
		if err := traceFile.Close(); err != nil {
			slog.Error("failed to close trace file", "error", err)
		}
		if err := metricsFile.Close(); err != nil {
			slog.Error("failed to close metrics file", "error", err)
		}
	}

	return tp.Tracer(serviceName), metrics, cleanup, nil
}

// NewMetrics creates the service instruments on the given meter. Init uses
// the file-exporting meter; tests can pass one backed by a manual reader.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.ChatRequests, err = meter.Int64Counter("carebridge.chat.requests",
		metric.WithDescription("Chat relay requests started")); err != nil {
		return nil, err
	}
	if m.ChatFailures, err = meter.Int64Counter("carebridge.chat.failures",
		metric.WithDescription("Chat relay requests that failed upstream")); err != nil {
		return nil, err
	}
	if m.Extractions, err = meter.Int64Counter("carebridge.extract.requests",
		metric.WithDescription("Prescription extraction requests started")); err != nil {
		return nil, err
	}
	if m.ExtractionFailures, err = meter.Int64Counter("carebridge.extract.failures",
		metric.WithDescription("Prescription extraction requests that failed")); err != nil {
		return nil, err
	}
	if m.ExtractionSeconds, err = meter.Float64Histogram("carebridge.extract.duration",
		metric.WithDescription("Prescription extraction duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

// Noop returns instruments backed by the global no-op meter, for tests and
// for running without telemetry initialized.
func Noop() *Metrics {
	m, err := NewMetrics(otel.Meter(serviceName))
	if err != nil {
		// The no-op meter never fails to create instruments.
		panic(err)
	}
	return m
}
