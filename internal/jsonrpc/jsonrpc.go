// Package jsonrpc implements the JSON-RPC 2.0 protocol spoken by lampod
// over its local unix socket.
//
// The package is transport-complete but method-agnostic: it knows how to
// accept connections, decode request envelopes, resolve method names
// against a registry bound to a shared application context, and encode
// response envelopes. What the individual methods do is entirely up to
// the caller registering them.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the only protocol version accepted by the server.
const ProtocolVersion = "2.0"

// Error codes used by the engine itself. Method callbacks are free to
// return their own domain codes.
const (
	// CodeInvalidRequest is the standard JSON-RPC 2.0 code for an
	// envelope carrying the wrong protocol version.
	CodeInvalidRequest = -32600

	// CodeInternalError is the standard code used when a callback fails
	// with an error that carries no code of its own.
	CodeInternalError = -32603

	// CodeMethodNotFound is the historical lampo code for an unknown
	// method. It deviates from the standard -32601 on purpose: existing
	// clients match on -1.
	CodeMethodNotFound = -1
)

// Request is the JSON-RPC 2.0 request envelope. Params and ID are kept
// raw: the engine never interprets them, it only hands Params to the
// resolved callback and echoes ID back in the response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Response is the JSON-RPC 2.0 response envelope. Exactly one of Result
// and Error is set on a well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is the JSON-RPC 2.0 error object. It doubles as a Go error so
// method callbacks can return one directly and have code, message and
// data surface verbatim in the response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an *Error with a formatted message and no data.
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError converts any callback failure into a wire error object.
// An *Error passes through untouched, anything else becomes an
// internal error carrying the error text.
func AsError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

// ParseRequest decodes a raw payload into a request envelope. The checks
// here are structural only: the payload must be a JSON object and must
// carry both a method and an id member (an explicit null id is present,
// an absent id is not). Version correctness is deliberately left to the
// connection handler, which can still correlate an error response.
func ParseRequest(buf []byte) (*Request, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(buf, &members); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if _, ok := members["method"]; !ok {
		return nil, fmt.Errorf("malformed request: missing `method` member")
	}
	if _, ok := members["id"]; !ok {
		return nil, fmt.Errorf("malformed request: missing `id` member")
	}

	var req Request
	if err := json.Unmarshal(buf, &req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	return &req, nil
}
