package task

import (
	"errors"
	"fmt"
	"sync"
)

// Registry errors
var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("task already registered")
	ErrEmptyTaskName = errors.New("task name cannot be empty")
)

// Definition is a registered task.
type Definition struct {
	Name    string
	Handler Handler
	// IgnoreResult skips the result store. It is the default.
	IgnoreResult bool
}

// Option customizes a Definition at registration.
type Option func(*Definition)

// StoreResult keeps the task's outcome in the result store.
func StoreResult() Option {
	return func(d *Definition) {
		d.IgnoreResult = false
	}
}

// Registry maps task names to handlers.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	names []string
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a named task.
func (r *Registry) Register(name string, h Handler, opts ...Option) error {
	if name == "" {
		return ErrEmptyTaskName
	}
	if h == nil {
		return fmt.Errorf("task %s: handler cannot be nil", name)
	}

	def := Definition{Name: name, Handler: h, IgnoreResult: true}
	for _, opt := range opts {
		opt(&def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	r.defs[name] = def
	r.names = append(r.names, name)
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns registered task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}
