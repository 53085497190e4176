package shardbus

// TypeTimer is the type of the synthetic tick events the engine
// publishes while running. Timer events carry no payload.
const TypeTimer = "timer.tick"

// Event is a typed message routed by the engine. The payload is opaque
// to the engine; only Type participates in routing and handler lookup.
// Events are immutable once created.
type Event struct {
	// Type selects the handlers an event is dispatched to and the
	// shard it is queued on.
	Type string

	// Data is the payload. It is passed to handlers untouched and may
	// be nil.
	Data any
}

// NewEvent creates an event of the given type. Pass nil data for
// payload-less events.
func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}
