package shardbus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/shardbus/pkg/shardbus/deadletter"
	"github.com/randalmurphal/shardbus/pkg/shardbus/observability"
)

// runWorker drains one shard queue until stopCh closes.
//
// The inner loop pops everything available, checking stopCh between
// events so shutdown is prompt even under load. The outer select parks
// on the queue signal, with the poll ticker as an upper bound on how
// long the worker sleeps without rechecking.
func (e *Engine) runWorker(shard int, stopCh <-chan struct{}) {
	defer e.wg.Done()

	q := e.queues[shard]
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			select {
			case <-stopCh:
				return
			default:
			}

			evt, ok := q.tryPop()
			if !ok {
				break
			}
			e.dispatch(shard, evt)
		}

		select {
		case <-stopCh:
			return
		case <-q.wait():
		case <-ticker.C:
		}
	}
}

// dispatch runs every matching handler for evt and reports faults to
// the configured sinks.
func (e *Engine) dispatch(shard int, evt Event) {
	ctx, span := e.cfg.Spans.StartDispatchSpan(context.Background(), evt.Type, shard)

	start := time.Now()
	faults := e.registry.Dispatch(evt)
	duration := time.Since(start)

	e.dispatched.Add(1)
	e.cfg.Metrics.RecordDispatch(ctx, evt.Type, duration)
	observability.LogDispatch(e.cfg.Logger, evt.Type, shard, float64(duration.Milliseconds()))

	for _, fault := range faults {
		e.cfg.Spans.AddSpanEvent(ctx, "handler.fault",
			attribute.String("handler", fault.Handler))
		e.recordFault(ctx, shard, evt, fault)
	}

	var spanErr error
	if len(faults) > 0 {
		spanErr = faults[0]
	}
	e.cfg.Spans.EndSpanWithError(span, spanErr)
}

// recordFault feeds one handler fault to the log, metrics, dead letter
// store, fault tracker, and callback. None of these can stall or abort
// the worker.
func (e *Engine) recordFault(ctx context.Context, shard int, evt Event, fault *HandlerFault) {
	e.faulted.Add(1)
	e.cfg.Metrics.RecordFault(ctx, evt.Type, fault.Handler)
	observability.LogHandlerFault(e.cfg.Logger, evt.Type, fault.Handler, fault.Err, fault.Panicked)

	if e.cfg.Faults != nil {
		e.cfg.Faults.Record(evt.Type, fault.Handler)
	}

	if e.cfg.DeadLetters != nil {
		rec := deadletter.NewRecord(evt.Type, evt.Data, fault.Handler, fault.Err.Error(), shard)
		if err := e.cfg.DeadLetters.Append(ctx, rec); err != nil {
			observability.LogDeadLetterError(e.cfg.Logger, evt.Type, err)
		}
	}

	if e.cfg.OnFault != nil {
		e.cfg.OnFault(fault)
	}
}
