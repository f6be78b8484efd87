// Package rpc implements the method bodies lampod registers on its
// JSON-RPC server. Each method takes the shared daemon context and the
// raw request params, and returns a result the engine marshals into the
// response envelope.
package rpc

import (
	"encoding/json"

	"github.com/Truja503/lampo/internal/jsonrpc"
)

// CodeInvalidParams is the standard JSON-RPC code for params a method
// cannot decode.
const CodeInvalidParams = -32602

// decodeParams unmarshals raw params into T. nil params decode as the
// zero value, so methods with all-optional params accept a bare call.
func decodeParams[T any](raw json.RawMessage) (T, error) {
	var params T
	if len(raw) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, jsonrpc.Errorf(CodeInvalidParams, "invalid params: %s", err)
	}
	return params, nil
}
