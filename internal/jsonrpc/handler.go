package jsonrpc

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Method is a callback bound to the shared application context T.
// Params arrive raw and uninterpreted; the returned value is marshalled
// into the response result. A returned *Error surfaces verbatim in the
// response error object, any other error becomes an internal error.
type Method[T any] func(ctx *T, params json.RawMessage) (interface{}, error)

// Handler is the method registry: a flat name to callback table bound to
// one shared application context. The table is populated once during
// startup and then frozen by the server before it starts accepting, so
// dispatch never takes a lock.
type Handler[T any] struct {
	mu      sync.Mutex
	methods map[string]Method[T]
	ctx     *T

	frozen  atomic.Bool
	stopped atomic.Bool
}

// NewHandler builds an empty registry around the shared context.
// The context is shared, never owned: every dispatched callback sees the
// same instance and any internal mutable state in it must be guarded by
// the context's own locking discipline.
func NewHandler[T any](ctx *T) *Handler[T] {
	return &Handler[T]{
		methods: make(map[string]Method[T]),
		ctx:     ctx,
	}
}

// Register inserts a callback under name. Registering a duplicate name
// fails and leaves the prior entry intact, as does registering once the
// table has been frozen by a listening server.
func (h *Handler[T]) Register(name string, callback Method[T]) error {
	if h.frozen.Load() {
		return fmt.Errorf("cannot register `%s`: method table is frozen", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.methods[name]; ok {
		return fmt.Errorf("method `%s` already registered", name)
	}
	h.methods[name] = callback
	return nil
}

// Has reports whether a method is registered under name.
func (h *Handler[T]) Has(name string) bool {
	_, ok := h.lookup(name)
	return ok
}

// Context returns the shared application context.
func (h *Handler[T]) Context() *T {
	return h.ctx
}

// RunCallback resolves the request's method and invokes it against the
// shared context. An unknown method yields the historical lampo error
// (code -1, message naming the method).
func (h *Handler[T]) RunCallback(req *Request) (interface{}, error) {
	callback, ok := h.lookup(req.Method)
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "method `%s` not found", req.Method)
	}
	return callback(h.ctx, req.Params)
}

// Stop flips the shutdown flag. The flag is observed by the accept loop
// between iterations only: in-flight connections and callbacks always
// run to completion.
func (h *Handler[T]) Stop() {
	h.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (h *Handler[T]) Stopped() bool {
	return h.stopped.Load()
}

// freeze closes the populate phase. Lookups after this point skip the
// mutex entirely.
func (h *Handler[T]) freeze() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frozen.Store(true)
}

func (h *Handler[T]) lookup(name string) (Method[T], bool) {
	if h.frozen.Load() {
		m, ok := h.methods[name]
		return m, ok
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.methods[name]
	return m, ok
}
