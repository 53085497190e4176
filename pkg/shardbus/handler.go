package shardbus

import "github.com/google/uuid"

// HandlerFunc is the callback invoked for each dispatched event.
// A non-nil return is reported as a fault and never halts dispatch.
type HandlerFunc func(Event) error

// Handler is an identity-bearing handle for a registered callback.
//
// Function values are not comparable in Go, so registration identity
// lives in the handle: registering the same *Handler twice for a type
// is a no-op, and unregistering requires the handle that registered.
// Wrapping one function in two handles yields two independent
// registrations.
type Handler struct {
	name string
	fn   HandlerFunc
}

// NewHandler wraps fn in a handle with a generated name.
func NewHandler(fn HandlerFunc) *Handler {
	return NamedHandler("handler-"+uuid.New().String()[:8], fn)
}

// NamedHandler wraps fn in a handle with the given name. The name
// appears in logs, metrics, and dead letter records.
func NamedHandler(name string, fn HandlerFunc) *Handler {
	return &Handler{name: name, fn: fn}
}

// Name returns the handle's name.
func (h *Handler) Name() string {
	return h.name
}
