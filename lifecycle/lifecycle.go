// Package lifecycle models the worker's event-driven execution: a fixed
// set of event kinds, each with one registered asynchronous handler,
// dispatched by the hosting process.
//
// Install is always dispatched before activate, and activate before any
// traffic is served; handlers may rely on that ordering. Fetch and
// notification-click are listed for completeness but are dispatched by the
// HTTP layer directly, since they produce responses the registry does not
// carry.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// Kind is one of the fixed lifecycle event kinds.
type Kind string

const (
	Install           Kind = "install"
	Activate          Kind = "activate"
	Fetch             Kind = "fetch"
	Sync              Kind = "sync"
	Push              Kind = "push"
	NotificationClick Kind = "notification-click"
)

// Event is a single dispatched occurrence of a lifecycle event.
type Event struct {
	Kind Kind
	// Tag carries the sync tag or notification id, where applicable.
	Tag string
	// Data carries the raw event payload (e.g. push message bytes).
	Data []byte
}

// HandlerFunc handles one event. It runs to completion before the dispatch
// returns; long waits suspend on the context.
type HandlerFunc func(ctx context.Context, ev Event) error

// Registry maps each event kind to its handler.
// Handlers share no state through the registry.
type Registry struct {
	mutex    sync.RWMutex
	handlers map[Kind]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Kind]HandlerFunc),
	}
}

// Register sets the handler for the given kind, replacing any previous one.
func (r *Registry) Register(kind Kind, handler HandlerFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.handlers[kind] = handler
}

// Dispatch runs the handler registered for the event's kind.
// Dispatching an event nobody handles is an error.
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	r.mutex.RLock()
	handler, ok := r.handlers[ev.Kind]
	r.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for %q event", ev.Kind)
	}
	return handler(ctx, ev)
}
