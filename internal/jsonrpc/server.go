package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
)

// maxRequestBytes bounds a single request payload. The protocol carries
// exactly one request per connection and a single read is sufficient, so
// anything larger than this is not a lampo client.
const maxRequestBytes = 1 << 20

// Server owns the unix socket lifecycle and the accept loop. Every
// accepted connection carries exactly one request and receives exactly
// one response; connections are handled concurrently and independently
// of the accept loop.
type Server[T any] struct {
	socketPath string
	handler    *Handler[T]
	logger     *log.Logger

	mu       sync.Mutex
	listener net.Listener

	wg sync.WaitGroup
}

// NewServer builds a server around a fresh registry bound to ctx,
// serving at socketPath once Listen is called.
func NewServer[T any](ctx *T, socketPath string) *Server[T] {
	return &Server[T]{
		socketPath: socketPath,
		handler:    NewHandler(ctx),
		logger:     log.New(io.Discard, "", 0),
	}
}

// SetLogger replaces the discard logger used by default.
func (s *Server[T]) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Register exposes the registry's populate phase; see Handler.Register.
func (s *Server[T]) Register(name string, callback Method[T]) error {
	return s.handler.Register(name, callback)
}

// Handler returns the method registry, shared with every connection
// handler and with any external handler bridge wrapping it.
func (s *Server[T]) Handler() *Handler[T] {
	return s.handler
}

// Listen binds the unix socket and serves until Stop is called. A stale
// socket file left behind by a prior non-graceful shutdown is removed
// before binding. Socket permissions are opened to 0666: access control
// is purely at the filesystem-path level, there is no on-socket
// authentication.
//
// Bind and permission failures are returned to the caller and are the
// only conditions fatal to the server; per-connection failures are
// logged and never stop the accept loop.
func (s *Server[T]) Listen() error {
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o666); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	stopped := s.handler.Stopped()
	s.mu.Unlock()
	if stopped {
		// Stop raced with startup.
		listener.Close()
		os.Remove(s.socketPath)
		return nil
	}

	s.handler.freeze()
	s.logger.Printf("JSON-RPC server listening on %s", s.socketPath)

	for !s.handler.Stopped() {
		conn, err := listener.Accept()
		if err != nil {
			if s.handler.Stopped() || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Printf("[ERROR] accept: %s", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}

	s.wg.Wait()
	listener.Close()
	os.Remove(s.socketPath)
	s.logger.Printf("JSON-RPC server on %s stopped", s.socketPath)
	return nil
}

// Stop flips the shutdown flag and unblocks a pending accept by closing
// the listener. Shutdown is not preemptive: in-flight connections and
// callback executions run to completion.
func (s *Server[T]) Stop() {
	s.handler.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

// handleConn serves one request/response exchange and closes the
// connection. Nothing here is ever fatal to the process: a broken peer
// only costs its own connection.
func (s *Server[T]) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		s.logger.Printf("[WARN] reading request: %s", err)
		return
	}
	raw := buf[:n]

	req, err := ParseRequest(raw)
	if err != nil {
		// No well-formed id to correlate an error against: drop the
		// connection without a response.
		s.logger.Printf("[WARN] dropping connection: %s", err)
		return
	}
	s.logger.Printf("[TRACE] request received `%s`", raw)

	resp := s.serveRequest(req, raw)

	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.Printf("[ERROR] encoding response for `%s`: %s", req.Method, err)
		return
	}
	s.logger.Printf("[TRACE] response sent `%s`", out)
	if _, err := conn.Write(out); err != nil {
		// The channel is the only report path and it is broken.
		s.logger.Printf("[WARN] writing response for `%s`: %s", req.Method, err)
	}
}

// serveRequest validates the protocol version and dispatches through the
// registry, always producing exactly one response envelope correlated by
// the echoed id.
func (s *Server[T]) serveRequest(req *Request, raw []byte) *Response {
	if req.JSONRPC != ProtocolVersion {
		return &Response{
			JSONRPC: ProtocolVersion,
			Error: &Error{
				Code:    CodeInvalidRequest,
				Message: "Invalid Request: The JSON sent is not a valid Request object.",
				Data:    json.RawMessage(raw),
			},
			ID: req.ID,
		}
	}

	result, err := s.handler.RunCallback(req)
	if err != nil {
		return &Response{JSONRPC: ProtocolVersion, Error: AsError(err), ID: req.ID}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return &Response{
			JSONRPC: ProtocolVersion,
			Error:   Errorf(CodeInternalError, "encoding result of `%s`: %s", req.Method, err),
			ID:      req.ID,
		}
	}
	return &Response{JSONRPC: ProtocolVersion, Result: encoded, ID: req.ID}
}
