// Package registry holds the process-wide extension registries filled from
// init() and a small per-request value bag carried in the request context.
package registry

import (
	"context"
	"sync"
)

// Registry is a keyed store whose entries can be locked once the
// bootstrap has consumed them. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	globals map[string]interface{}
	locked  map[string]bool
}

// GlobalRegistry is shared by the cmd, cron and bean registries.
var GlobalRegistry = New()

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		globals: make(map[string]interface{}),
		locked:  make(map[string]bool),
	}
}

// SetGlobal stores v under key. Callers check IsLocked first; SetGlobal
// itself does not refuse writes so tests can reset state.
func (r *Registry) SetGlobal(key string, v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals[key] = v
}

// GetGlobal returns the value stored under key.
func (r *Registry) GetGlobal(key string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.globals[key]
	return v, ok
}

// Lock marks key as immutable.
func (r *Registry) Lock(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[key] = true
}

// IsLocked reports whether key was locked.
func (r *Registry) IsLocked(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked[key]
}

// UnlockForTesting reopens key for registration.
func (r *Registry) UnlockForTesting(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locked, key)
}

// RequestRegistry is a per-request value bag. It lives exactly as long as
// the request context that carries it.
type RequestRegistry struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

type requestKey struct{}

// WithRequest returns a child context carrying a fresh RequestRegistry.
func WithRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestKey{}, &RequestRegistry{values: make(map[string]interface{})})
}

// FromContext returns the RequestRegistry installed by WithRequest.
func FromContext(ctx context.Context) (*RequestRegistry, bool) {
	rr, ok := ctx.Value(requestKey{}).(*RequestRegistry)
	return rr, ok
}

// Set stores v under key.
func (rr *RequestRegistry) Set(key string, v interface{}) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.values[key] = v
}

// Get returns the value stored under key.
func (rr *RequestRegistry) Get(key string) (interface{}, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	v, ok := rr.values[key]
	return v, ok
}
