package shardbus

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for engine lifecycle.
var (
	// ErrAlreadyRunning indicates Start() was called on a running engine.
	ErrAlreadyRunning = errors.New("engine already running")
)

// ConfigError reports an invalid engine configuration field.
type ConfigError struct {
	// Field is the Config field that failed validation.
	Field string
	// Message describes the violated constraint.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// HandlerFault captures a single handler failure during dispatch.
// It satisfies the error interface so faults can flow through error
// sinks, but a fault never aborts the dispatch that produced it.
type HandlerFault struct {
	// EventType is the type of the event being dispatched.
	EventType string
	// Handler is the name of the handle that failed.
	Handler string
	// Err is the returned error, or the recovered panic value wrapped
	// as an error.
	Err error
	// Panicked is true when the fault came from a recovered panic.
	Panicked bool
	// Stack is the goroutine stack captured at the panic site.
	// Empty for plain error returns.
	Stack string
	// At is when the fault occurred.
	At time.Time
}

// Error implements the error interface.
func (f *HandlerFault) Error() string {
	if f.Panicked {
		return fmt.Sprintf("handler %s panicked on %s: %v", f.Handler, f.EventType, f.Err)
	}
	return fmt.Sprintf("handler %s failed on %s: %v", f.Handler, f.EventType, f.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (f *HandlerFault) Unwrap() error {
	return f.Err
}
