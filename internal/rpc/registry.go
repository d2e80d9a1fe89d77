package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Handler serves one procedure. The principal is available through
// PrincipalFrom(ctx).
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Registry maps procedure names to handlers. It serves the HTTP gateway
// and doubles as an in-process Caller.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces a handler
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names lists registered procedures
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs a procedure on raw parameters
func (r *Registry) Dispatch(ctx context.Context, name string, params json.RawMessage) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeNotFound, "unknown procedure %q", name)
	}
	if _, ok := PrincipalFrom(ctx); !ok {
		return nil, Errorf(CodeUnauthenticated, "sign in required")
	}
	return h(ctx, params)
}

// Call implements Caller without a network hop
func (r *Registry) Call(ctx context.Context, name string, req, resp any) error {
	params, err := json.Marshal(req)
	if err != nil {
		return Errorf(CodeInvalidArgument, "failed to encode request: %v", err)
	}
	result, err := r.Dispatch(ctx, name, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return Errorf(CodeInternal, "failed to encode result: %v", err)
	}
	return decodeInto(data, resp)
}

var _ Caller = (*Registry)(nil)

// As returns a Caller that invokes the registry's procedures as p. Local
// backends use it in place of a network client.
func (r *Registry) As(p Principal) Caller {
	return boundCaller{registry: r, principal: p}
}

type boundCaller struct {
	registry  *Registry
	principal Principal
}

func (b boundCaller) Call(ctx context.Context, name string, req, resp any) error {
	return b.registry.Call(WithPrincipal(ctx, b.principal), name, req, resp)
}
