package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"getinfo","params":{},"id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != "getinfo" {
		t.Fatalf("unexpected method: %q", req.Method)
	}
	if string(req.ID) != "1" {
		t.Fatalf("unexpected id: %q", req.ID)
	}
}

func TestParseRequest_nullID(t *testing.T) {
	// An explicit null id is present, not absent.
	req, err := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"getinfo","id":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(req.ID) != "null" {
		t.Fatalf("unexpected id: %q", req.ID)
	}
}

func TestParseRequest_malformed(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"jsonrpc":`},
		{"not an object", `[1,2,3]`},
		{"missing method", `{"jsonrpc":"2.0","id":1}`},
		{"missing id", `{"jsonrpc":"2.0","method":"getinfo"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tc.payload))
			if err == nil {
				t.Fatalf("expected %s to fail parsing", tc.name)
			}
		})
	}
}

func TestResponse_roundTrip(t *testing.T) {
	testCases := []struct {
		name string
		resp Response
	}{
		{
			"result",
			Response{
				JSONRPC: "2.0",
				Result:  json.RawMessage(`{"a":1,"b":["x",null]}`),
				ID:      json.RawMessage(`7`),
			},
		},
		{
			"error",
			Response{
				JSONRPC: "2.0",
				Error:   &Error{Code: 42, Message: "insufficient funds"},
				ID:      json.RawMessage(`"req-1"`),
			},
		},
		{
			"error with data",
			Response{
				JSONRPC: "2.0",
				Error: &Error{
					Code:    CodeInvalidRequest,
					Message: "Invalid Request: The JSON sent is not a valid Request object.",
					Data:    json.RawMessage(`{"jsonrpc":"1.0"}`),
				},
				ID: json.RawMessage(`null`),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := json.Marshal(tc.resp)
			if err != nil {
				t.Fatal(err)
			}
			var decoded Response
			if err := json.Unmarshal(encoded, &decoded); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.resp, decoded); diff != "" {
				t.Fatalf("response did not survive the round trip: %s", diff)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	rpcErr := Errorf(42, "insufficient funds")
	if got := AsError(rpcErr); got != rpcErr {
		t.Fatalf("expected rpc error to pass through, got %#v", got)
	}

	wrapped := AsError(errors.New("boom"))
	if wrapped.Code != CodeInternalError {
		t.Fatalf("unexpected code: %d", wrapped.Code)
	}
	if wrapped.Message != "boom" {
		t.Fatalf("unexpected message: %q", wrapped.Message)
	}
}
