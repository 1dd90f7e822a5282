// Package control implements the external HTTP + WebSocket surface spec
// §4.8 describes, grounded on PromptKit's runtime/a2a.Server for the
// option-function construction, timeout defaults, and graceful-shutdown
// draining pattern, and on runtime/providers/gemini.WebSocketManager for
// the mutex-guarded connection bookkeeping and per-connection write
// serialization (gorilla/websocket requires single-writer discipline).
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/speechflow/engine/errs"
	"github.com/speechflow/engine/logger"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/sidechain"
)

// defaultReadHeaderTimeout prevents Slowloris-style attacks against the
// control surface, matching PromptKit's a2a.Server default.
const defaultReadHeaderTimeout = 10 * time.Second

// Request is the external control wire format (spec §6).
type Request struct {
	Request string `json:"request"`
	Node    string `json:"node"`
	Args    []any  `json:"args"`
}

// Response is the external control wire format's reply shape.
type Response struct {
	Response string `json:"response"`
	Data     string `json:"data,omitempty"`
	Node     string `json:"node,omitempty"`
	Args     []any  `json:"args,omitempty"`
}

// Option configures a Server, mirroring a2a.ServerOption.
type Option func(*Server)

// WithPort sets the TCP port for ListenAndServe.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithReadTimeout overrides the default header read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readHeaderTimeout = d }
}

// Server is the control surface: it registers nodes read-only by id and
// only ever invokes ReceiveRequest or listens for SendResponse — it never
// touches node internals (spec §4 Design Notes shared-resource policy).
type Server struct {
	port              int
	readHeaderTimeout time.Duration
	httpSrv           *http.Server

	nodesMu sync.RWMutex
	nodes   map[string]node.Node

	upgrader websocket.Upgrader

	peersMu sync.Mutex
	peers   map[*peer]struct{}

	bus *sidechain.Registry

	refusing bool
	refuseMu sync.Mutex
}

type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) writeJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

// NewServer creates a control surface over the given sidechain registry
// (notifications are read off each node's "notify:<id>" bus, spec §4.3's
// send_response).
func NewServer(bus *sidechain.Registry, opts ...Option) *Server {
	s := &Server{
		readHeaderTimeout: defaultReadHeaderTimeout,
		nodes:             make(map[string]node.Node),
		peers:             make(map[*peer]struct{}),
		bus:               bus,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a node to the read-only registry and subscribes to its
// notification bus so SendResponse events fan out over WebSocket.
func (s *Server) Register(n node.Node) {
	s.nodesMu.Lock()
	s.nodes[n.ID()] = n
	s.nodesMu.Unlock()

	s.bus.Access("notify:" + n.ID()).Subscribe(func(e sidechain.Event) {
		args, _ := e.Data.([]any)
		s.broadcast(Response{Response: "NOTIFY", Node: e.Node, Args: args})
	})
}

// Handler returns the routed http.Handler: POST /api, GET
// /api/{command}/{node}/{args...}, GET /ws (spec §4.8).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api", s.handlePostAPI)
	mux.HandleFunc("GET /api/", s.handleGetAPI)
	mux.HandleFunc("GET /ws", s.handleWS)
	return otelhttp.NewHandler(mux, "control")
}

// ListenAndServe starts the HTTP+WS server on the configured port.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting new external requests and drains in-flight ones
// (spec §4.9 step 1: "Stop the control surface").
func (s *Server) Shutdown(ctx context.Context) error {
	s.refuseMu.Lock()
	s.refusing = true
	s.refuseMu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handlePostAPI(w http.ResponseWriter, r *http.Request) {
	if s.isRefusing() {
		writeResponse(w, http.StatusServiceUnavailable, Response{Response: "ERROR", Data: "control surface is shutting down"})
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusExpectationFailed, Response{Response: "ERROR", Data: "malformed request: " + err.Error()})
		return
	}
	s.dispatch(w, req)
}

// handleGetAPI parses GET /api/{command}/{node}/{args...} (spec §4.8).
func (s *Server) handleGetAPI(w http.ResponseWriter, r *http.Request) {
	if s.isRefusing() {
		writeResponse(w, http.StatusServiceUnavailable, Response{Response: "ERROR", Data: "control surface is shutting down"})
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		writeResponse(w, http.StatusNotFound, Response{Response: "ERROR", Data: "expected /api/{command}/{node}/{args...}"})
		return
	}

	args := make([]any, 0, len(parts)-2)
	for _, a := range parts[2:] {
		args = append(args, a)
	}
	s.dispatch(w, Request{Request: parts[0], Node: parts[1], Args: args})
}

func (s *Server) dispatch(w http.ResponseWriter, req Request) {
	if req.Request == "" || req.Node == "" {
		writeResponse(w, http.StatusExpectationFailed, Response{Response: "ERROR", Data: "request and node are required"})
		return
	}

	s.nodesMu.RLock()
	n, ok := s.nodes[req.Node]
	s.nodesMu.RUnlock()
	if !ok {
		writeResponse(w, http.StatusNotFound, Response{Response: "ERROR", Data: fmt.Sprintf("unknown node %q", req.Node)})
		return
	}

	receiver, ok := n.(node.RequestReceiver)
	if !ok {
		writeResponse(w, http.StatusExpectationFailed, Response{Response: "ERROR", Data: fmt.Sprintf("node %q does not accept requests", req.Node)})
		return
	}

	if _, err := receiver.ReceiveRequest(context.Background(), req.Args); err != nil {
		var extErr *errs.ExternalRequestErrorKind
		msg := err.Error()
		if cast, is := err.(*errs.ExternalRequestErrorKind); is {
			extErr = cast
			msg = extErr.Error()
		}
		writeResponse(w, http.StatusExpectationFailed, Response{Response: "ERROR", Data: msg})
		return
	}

	writeResponse(w, http.StatusOK, Response{Response: "OK"})
}

func (s *Server) isRefusing() bool {
	s.refuseMu.Lock()
	defer s.refuseMu.Unlock()
	return s.refusing
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("control: websocket upgrade failed", "error", err)
		return
	}

	p := &peer{conn: conn}
	s.peersMu.Lock()
	s.peers[p] = struct{}{}
	s.peersMu.Unlock()

	defer func() {
		s.peersMu.Lock()
		delete(s.peers, p)
		s.peersMu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(resp Response) {
	s.peersMu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.peersMu.Unlock()

	for _, p := range peers {
		if err := p.writeJSON(resp); err != nil {
			logger.Error("control: websocket write failed", "error", err)
		}
	}
}
