package session

import (
	"context"
	"sync"
)

// contextKey is a type alias for context keys owned by this package.
type contextKey int

const (
	// sessionIDContextKey is the context key under which the current session identifier is
	// stored.
	sessionIDContextKey contextKey = iota
)

// Provider resolves the session identifier from an external source, such as the request being
// served. It reports false when no session is available.
type Provider func(ctx context.Context) (string, bool)

// With returns a copy of ctx in which the current session identifier is id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

// FromContext reads the session identifier visible to ctx. An empty identifier is reported as
// absent.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	id, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

// Resolver determines the session identifier in effect at metric construction time. The zero
// value resolves ambient identifiers only.
type Resolver struct {
	provider Provider
	mutex    sync.RWMutex
}

// NewResolver creates a resolver with no provider registered.
func NewResolver() *Resolver {
	return &Resolver{}
}

// SetProvider registers a provider that supersedes ambient context identifiers. A nil provider
// unregisters any previous one.
func (r *Resolver) SetProvider(provider Provider) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.provider = provider
}

// Resolve returns the session identifier for ctx: the registered provider's answer if one is
// registered, otherwise the ambient identifier carried by ctx.
func (r *Resolver) Resolve(ctx context.Context) (string, bool) {
	if r == nil {
		return FromContext(ctx)
	}

	r.mutex.RLock()
	provider := r.provider
	r.mutex.RUnlock()

	if provider == nil {
		return FromContext(ctx)
	}

	id, ok := provider(ctx)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}
