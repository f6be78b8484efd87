// Package handler decouples lampod's command tables from the
// transport-facing registry. A Handler is a capability that may claim a
// request or decline it, so independent method tables can be composed
// and the whole dispatch back-end swapped without touching call sites.
package handler

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Truja503/lampo/internal/jsonrpc"
)

// Handler is the external handler bridge. Handle inspects a request and
// returns one of three outcomes:
//
//   - (result, true, nil): the handler claimed the method and succeeded;
//   - (nil, true, err): the handler claimed the method and failed;
//   - (nil, false, nil): the handler does not recognize the method and
//     an outer composition should decide.
//
// A Handler never builds protocol envelopes; that remains the job of
// the connection handler on the transport side.
type Handler interface {
	Handle(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, bool, error)
}

// CommandHandler adapts a registry-backed method table into the bridge.
// The registry may be attached after construction, which lets the daemon
// wire its dispatch chain before the transport exists; until then every
// request is declined.
type CommandHandler[T any] struct {
	handler *jsonrpc.Handler[T]
	logger  *log.Logger
}

// NewCommandHandler wraps a method registry into a bridge.
func NewCommandHandler[T any](h *jsonrpc.Handler[T], logger *log.Logger) *CommandHandler[T] {
	return &CommandHandler[T]{handler: h, logger: logger}
}

// SetHandler attaches (or replaces) the backing registry.
func (c *CommandHandler[T]) SetHandler(h *jsonrpc.Handler[T]) {
	c.handler = h
}

// Handle runs the request through the backing registry. Methods the
// registry does not know are declined rather than failed, so another
// handler in the chain can claim them.
func (c *CommandHandler[T]) Handle(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, bool, error) {
	if c.handler == nil {
		c.logger.Printf("[DEBUG] no method table attached, skipping `%s`", req.Method)
		return nil, false, nil
	}
	if !c.handler.Has(req.Method) {
		c.logger.Printf("[DEBUG] method `%s` unknown to this table, skipping", req.Method)
		return nil, false, nil
	}

	result, err := c.handler.RunCallback(req)
	if err != nil {
		return nil, true, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, true, jsonrpc.Errorf(jsonrpc.CodeInternalError,
			"encoding result of `%s`: %s", req.Method, err)
	}
	return encoded, true, nil
}
