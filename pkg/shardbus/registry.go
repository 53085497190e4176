package shardbus

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// Registry maps event types to ordered handler lists, plus a general
// list invoked for every event. All methods are safe for concurrent
// use. Dispatch snapshots the matching handlers and runs them outside
// the lock, so callbacks may register and unregister freely.
type Registry struct {
	mu      sync.RWMutex
	byType  map[string][]*Handler
	general []*Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]*Handler)}
}

// Register subscribes h to events of eventType. Registering a handle
// already subscribed to the type is a no-op, as is an empty type or a
// nil handle.
func (r *Registry) Register(eventType string, h *Handler) {
	if eventType == "" || h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if containsHandler(r.byType[eventType], h) {
		return
	}
	r.byType[eventType] = append(r.byType[eventType], h)
}

// Unregister removes h from eventType. Unknown types and handles are
// no-ops. The type's entry is pruned once its last handler is removed,
// so Has reports false afterwards.
func (r *Registry) Unregister(eventType string, h *Handler) {
	if eventType == "" || h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := removeHandler(r.byType[eventType], h)
	if len(list) == 0 {
		delete(r.byType, eventType)
	} else {
		r.byType[eventType] = list
	}
}

// RegisterAll subscribes h to every event, including types it was
// never registered for. Registering a handle already in the general
// list is a no-op.
func (r *Registry) RegisterAll(h *Handler) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if containsHandler(r.general, h) {
		return
	}
	r.general = append(r.general, h)
}

// UnregisterAll removes h from the general list. Unknown handles are
// no-ops.
func (r *Registry) UnregisterAll(h *Handler) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.general = removeHandler(r.general, h)
}

// Has reports whether eventType has at least one typed handler.
func (r *Registry) Has(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byType[eventType]
	return ok
}

// Types returns the event types with typed handlers, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Handlers returns a copy of the typed handler list for eventType in
// registration order.
func (r *Registry) Handlers(eventType string) []*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Handler(nil), r.byType[eventType]...)
}

// GeneralHandlers returns a copy of the general handler list in
// registration order.
func (r *Registry) GeneralHandlers() []*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Handler(nil), r.general...)
}

// Len returns the total number of registrations across typed lists and
// the general list.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.general)
	for _, list := range r.byType {
		n += len(list)
	}
	return n
}

// Dispatch invokes every handler subscribed to evt.Type in
// registration order, then every general handler. Faults are collected
// and returned; a failing or panicking handler never prevents the
// handlers after it from running.
func (r *Registry) Dispatch(evt Event) []*HandlerFault {
	r.mu.RLock()
	typed := r.byType[evt.Type]
	snapshot := make([]*Handler, 0, len(typed)+len(r.general))
	snapshot = append(snapshot, typed...)
	snapshot = append(snapshot, r.general...)
	r.mu.RUnlock()

	var faults []*HandlerFault
	for _, h := range snapshot {
		if fault := invoke(evt, h); fault != nil {
			faults = append(faults, fault)
		}
	}
	return faults
}

// invoke runs one handler, converting a returned error or a recovered
// panic into a fault.
func invoke(evt Event, h *Handler) (fault *HandlerFault) {
	defer func() {
		if rec := recover(); rec != nil {
			fault = &HandlerFault{
				EventType: evt.Type,
				Handler:   h.Name(),
				Err:       fmt.Errorf("panic: %v", rec),
				Panicked:  true,
				Stack:     string(debug.Stack()),
				At:        time.Now(),
			}
		}
	}()

	if err := h.fn(evt); err != nil {
		return &HandlerFault{
			EventType: evt.Type,
			Handler:   h.Name(),
			Err:       err,
			At:        time.Now(),
		}
	}
	return nil
}

func containsHandler(list []*Handler, h *Handler) bool {
	for _, existing := range list {
		if existing == h {
			return true
		}
	}
	return false
}

// removeHandler deletes h in place, nilling the vacated tail slot so
// the handler can be collected.
func removeHandler(list []*Handler, h *Handler) []*Handler {
	for i, existing := range list {
		if existing == h {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
