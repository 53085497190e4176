/*
Package shardbus provides a sharded in-process event distribution engine.

# Overview

shardbus routes typed events from producers to handlers. Handlers
subscribe to individual event types or to every event; a fixed set of
shard queues decouples producers from handler execution, and a built-in
timer publishes periodic tick events for lightweight scheduling.

The engine makes three core guarantees:
  - Publish never blocks and never drops (queues are unbounded)
  - Events of one type are dispatched in publish order
  - A failing or panicking handler never prevents the handlers after it
    from seeing the event, and never kills its worker

# Basic Usage

Create an engine, register handlers, start, publish:

	engine, err := shardbus.New(shardbus.Config{})
	if err != nil {
	    log.Fatal(err)
	}

	orders := shardbus.NamedHandler("orders", func(evt shardbus.Event) error {
	    fmt.Println("order:", evt.Data)
	    return nil
	})
	engine.Register("order.created", orders)

	if err := engine.Start(); err != nil {
	    log.Fatal(err)
	}
	defer engine.Stop()

	engine.Publish(shardbus.NewEvent("order.created", 42))

Handlers are identity-bearing handles: unregistering requires the same
*Handler that registered, and registering one handle twice for a type
is a no-op.

# Sharding and Ordering

Each event type maps to one of ShardCount queues by a stable hash, and
each queue is drained by a dedicated worker goroutine. All events of
one type therefore keep their publish order, while different types may
be dispatched concurrently. Treat ordering across types as undefined,
even when two types happen to share a shard.

Within one event's dispatch, typed handlers run before general
handlers, each list in registration order.

# Timer Events

While the engine runs, a timer goroutine publishes a payload-less event
of type TypeTimer every TimerInterval:

	engine.Register(shardbus.TypeTimer, shardbus.NamedHandler("ticker",
	    func(evt shardbus.Event) error {
	        pollUpstream()
	        return nil
	    }))

Ticks ride the normal publish path, so they interleave with other
events on their shard. Ticks are not generated while stopped and missed
ticks are not replayed.

# Error Isolation

A handler that returns an error or panics produces a HandlerFault. The
fault is logged, counted, and optionally forwarded to a dead letter
store, a FaultTracker, and the OnFault callback. Dispatch always
continues with the next handler.

	cfg := shardbus.Config{
	    OnFault: func(f *shardbus.HandlerFault) {
	        log.Printf("handler %s failed on %s: %v", f.Handler, f.EventType, f.Err)
	    },
	}

# Dead Letters

Capture failed dispatches for inspection:

	store, err := deadletter.NewSQLiteStore("./deadletters.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	engine, err := shardbus.New(shardbus.Config{DeadLetters: store})

Records hold the event type, a best-effort JSON payload, the handler
name, and the failure reason. Nothing is redelivered automatically.

# Observability

Enable logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	engine, err := shardbus.New(shardbus.Config{
	    Logger:  logger,
	    Metrics: observability.NewMetricsRecorder(),
	    Spans:   observability.NewSpanManager(),
	})

Logs include structured fields: event_type, shard, duration_ms.
OpenTelemetry metrics: shardbus.events.published, shardbus.dispatch.latency_ms, etc.
OpenTelemetry tracing: one shardbus.dispatch span per event.

# Back-Pressure

There is none. Publish accepts unconditionally and queue depth is
limited only by memory; producers that outrun handlers grow the shard
queues without bound. Watch Stats().QueueDepths if that matters for
your workload.

# Thread Safety

  - Engine IS safe for concurrent use (Publish, Register, Start, Stop)
  - Registry IS safe for concurrent use; handlers may mutate it mid-dispatch
  - Handlers run on worker goroutines; one worker per shard, so a slow
    handler delays everything behind it on the same shard
  - Store implementations are safe for concurrent use

# Subpackages

  - config: File-based settings (YAML, JSON)
  - deadletter: Failed dispatch storage (memory, SQLite)
  - observability: Logging, metrics, and tracing helpers
*/
package shardbus
