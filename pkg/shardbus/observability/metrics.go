package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records event engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records an event accepted for routing.
	RecordPublish(ctx context.Context, eventType string, shard int)

	// RecordDispatch records one completed dispatch with its duration.
	RecordDispatch(ctx context.Context, eventType string, duration time.Duration)

	// RecordFault records a single handler fault.
	RecordFault(ctx context.Context, eventType, handler string)

	// RecordTimerTick records one synthetic timer event.
	RecordTimerTick(ctx context.Context)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	published       metric.Int64Counter
	dispatched      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	faults          metric.Int64Counter
	timerTicks      metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("shardbus")

	published, err := meter.Int64Counter("shardbus.events.published",
		metric.WithDescription("Number of events accepted for routing"),
	)
	if err != nil {
		return nil, err
	}

	dispatched, err := meter.Int64Counter("shardbus.events.dispatched",
		metric.WithDescription("Number of events dispatched to handlers"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("shardbus.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	faults, err := meter.Int64Counter("shardbus.handler.faults",
		metric.WithDescription("Number of handler faults"),
	)
	if err != nil {
		return nil, err
	}

	timerTicks, err := meter.Int64Counter("shardbus.timer.ticks",
		metric.WithDescription("Number of synthetic timer events"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		published:       published,
		dispatched:      dispatched,
		dispatchLatency: dispatchLatency,
		faults:          faults,
		timerTicks:      timerTicks,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records an event accepted for routing.
func (m *otelMetrics) RecordPublish(ctx context.Context, eventType string, shard int) {
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Int("shard", shard),
	))
}

// RecordDispatch records one completed dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventType string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
	}

	m.dispatched.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordFault records a single handler fault.
func (m *otelMetrics) RecordFault(ctx context.Context, eventType, handler string) {
	m.faults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("handler", handler),
	))
}

// RecordTimerTick records one synthetic timer event.
func (m *otelMetrics) RecordTimerTick(ctx context.Context) {
	m.timerTicks.Add(ctx, 1)
}
