package jsonrpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testServer(t *testing.T) (*Server[testDaemon], string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "lampod.sock")
	srv := NewServer(&testDaemon{}, socketPath)

	if err := srv.Register("echo", func(ctx *testDaemon, params json.RawMessage) (interface{}, error) {
		return params, nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := srv.Register("fail", func(ctx *testDaemon, params json.RawMessage) (interface{}, error) {
		return nil, Errorf(42, "insufficient funds")
	}); err != nil {
		t.Fatal(err)
	}
	if err := srv.Register("slow", func(ctx *testDaemon, params json.RawMessage) (interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return ctx.bump(), nil
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Listen() }()
	t.Cleanup(func() {
		srv.Stop()
		if err := <-done; err != nil {
			t.Errorf("server exited with error: %s", err)
		}
	})
	waitForSocket(t, socketPath)
	return srv, socketPath
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", path)
}

// rawCall sends one raw payload and returns the raw response. The
// server closes the connection after writing, so a plain ReadAll
// suffices.
func rawCall(socketPath, payload string) ([]byte, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(payload)); err != nil {
		return nil, err
	}
	return io.ReadAll(conn)
}

func call(t *testing.T, socketPath string, payload string) []byte {
	t.Helper()
	out, err := rawCall(socketPath, payload)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestServer_echo(t *testing.T) {
	_, socketPath := testServer(t)

	out := call(t, socketPath, `{"jsonrpc":"2.0","method":"echo","params":{"a":1},"id":7}`)

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.Result) != `{"a":1}` {
		t.Fatalf("unexpected result: %s", resp.Result)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("response id does not correlate: %s", resp.ID)
	}
}

func TestServer_applicationError(t *testing.T) {
	_, socketPath := testServer(t)

	out := call(t, socketPath, `{"jsonrpc":"2.0","method":"fail","id":3}`)

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result != nil {
		t.Fatalf("expected no result, got %s", resp.Result)
	}
	if resp.Error == nil {
		t.Fatal("expected an error object")
	}
	if resp.Error.Code != 42 || resp.Error.Message != "insufficient funds" {
		t.Fatalf("application error not surfaced verbatim: %+v", resp.Error)
	}
}

func TestServer_methodNotFound(t *testing.T) {
	_, socketPath := testServer(t)

	out := call(t, socketPath, `{"jsonrpc":"2.0","method":"missing","id":2}`)

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
	if want := "method `missing` not found"; resp.Error.Message != want {
		t.Fatalf("unexpected message: %q", resp.Error.Message)
	}
	if string(resp.ID) != "2" {
		t.Fatalf("response id does not correlate: %s", resp.ID)
	}
}

func TestServer_invalidVersion(t *testing.T) {
	_, socketPath := testServer(t)

	payload := `{"jsonrpc":"1.0","method":"x","id":1}`
	out := call(t, socketPath, payload)

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected -32600, got %+v", resp.Error)
	}
	if resp.Result != nil {
		t.Fatalf("expected no result, got %s", resp.Result)
	}
	// The offending request is echoed back in error.data.
	var echoed Request
	if err := json.Unmarshal(resp.Error.Data, &echoed); err != nil {
		t.Fatal(err)
	}
	if echoed.JSONRPC != "1.0" || echoed.Method != "x" {
		t.Fatalf("offending request not echoed back: %s", resp.Error.Data)
	}
	if string(resp.ID) != "1" {
		t.Fatalf("response id does not correlate: %s", resp.ID)
	}
}

func TestServer_malformedRequestDropsConnection(t *testing.T) {
	_, socketPath := testServer(t)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"jsonrpc":`)); err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected the connection to drop without a response, got %s", out)
	}
}

func TestServer_concurrentClients(t *testing.T) {
	srv, socketPath := testServer(t)

	const clients = 8

	start := time.Now()
	var wg sync.WaitGroup
	responses := make([][]byte, clients)
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"jsonrpc":"2.0","method":"slow","params":null,"id":%d}`, i)
			responses[i], errs[i] = rawCall(socketPath, payload)
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	for i, err := range errs {
		if err != nil {
			t.Fatalf("client %d: %s", i, err)
		}
	}

	// Handlers run independently of the accept loop: the wall clock must
	// not scale with the number of clients.
	if elapsed > 4*200*time.Millisecond {
		t.Fatalf("connection handling appears serialized: %d clients took %s", clients, elapsed)
	}

	for i, out := range responses {
		var resp Response
		if err := json.Unmarshal(out, &resp); err != nil {
			t.Fatalf("client %d: %s", i, err)
		}
		if resp.Error != nil {
			t.Fatalf("client %d: unexpected error %+v", i, resp.Error)
		}
		if string(resp.ID) != fmt.Sprintf("%d", i) {
			t.Fatalf("client %d got a response correlated to id %s", i, resp.ID)
		}
	}

	if got := srv.Handler().Context().calls; got != clients {
		t.Fatalf("expected %d callback executions against the shared context, got %d", clients, got)
	}
}

func TestServer_staleSocketRemoved(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "lampod.sock")

	// Simulate a socket file left behind by a non-graceful shutdown.
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(&testDaemon{}, socketPath)
	done := make(chan error, 1)
	go func() { done <- srv.Listen() }()
	waitForSocket(t, socketPath)

	srv.Stop()
	if err := <-done; err != nil {
		t.Fatalf("expected the stale socket to be replaced, got %s", err)
	}
}
