// Package observability provides production-grade observability features
// for shardbus: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// LogEngineStart logs engine startup.
func LogEngineStart(logger *slog.Logger, shards int, timerInterval time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("engine starting",
		slog.Int("shards", shards),
		slog.Duration("timer_interval", timerInterval),
	)
}

// LogEngineStop logs engine shutdown.
func LogEngineStop(logger *slog.Logger, uptimeMs float64) {
	if logger == nil {
		return
	}
	logger.Info("engine stopped",
		slog.Float64("uptime_ms", uptimeMs),
	)
}

// LogDispatch logs one completed dispatch.
func LogDispatch(logger *slog.Logger, eventType string, shard int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("event_type", eventType),
		slog.Int("shard", shard),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandlerFault logs a handler failure (non-fatal).
func LogHandlerFault(logger *slog.Logger, eventType, handler string, err error, panicked bool) {
	if logger == nil {
		return
	}
	logger.Warn("handler fault",
		slog.String("event_type", eventType),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
		slog.Bool("panicked", panicked),
	)
}

// LogDeadLetterError logs a failed dead letter append (non-fatal).
func LogDeadLetterError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("dead letter append failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
