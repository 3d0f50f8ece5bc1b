// Package server exposes Lox evaluation over the network: an EvalService
// served with Connect (HTTP) and gRPC, and a language server over stdio.
package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/lox/history"
	"github.com/chazu/lox/interpreter"
)

// LoxServer serves an EvalService. All evaluation is serialized through one
// worker goroutine.
type LoxServer struct {
	worker   *Worker
	sessions *SessionStore
	service  *EvalService
	mux      *http.ServeMux
	grpc     *grpc.Server
	http     *http.Server
	log      commonlog.Logger
}

// ServerOption configures a LoxServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	history    *history.Store
	log        commonlog.Logger
	interpOpts []interpreter.Option
	timeout    time.Duration
}

// WithHistory records every evaluated submission in store.
func WithHistory(store *history.Store) ServerOption {
	return func(c *serverConfig) { c.history = store }
}

// WithLogger sets the logger used by the server and its service.
func WithLogger(log commonlog.Logger) ServerOption {
	return func(c *serverConfig) { c.log = log }
}

// WithInterpreterOptions configures the interpreter of every session.
func WithInterpreterOptions(opts ...interpreter.Option) ServerOption {
	return func(c *serverConfig) { c.interpOpts = append(c.interpOpts, opts...) }
}

// WithEvalTimeout bounds each Evaluate call. A program still running when
// it expires is interrupted, which frees the worker for other sessions.
func WithEvalTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.timeout = d }
}

// New creates a LoxServer.
func New(opts ...ServerOption) *LoxServer {
	cfg := &serverConfig{log: commonlog.GetLogger("lox.server")}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker()
	sessions := NewSessionStore(cfg.interpOpts...)
	svc := NewEvalService(worker, sessions, cfg.history, cfg.log)
	svc.timeout = cfg.timeout

	s := &LoxServer{
		worker:   worker,
		sessions: sessions,
		service:  svc,
		mux:      http.NewServeMux(),
		log:      cfg.log,
	}

	path, handler := NewConnectHandler(svc)
	s.mux.Handle(path, handler)
	s.grpc = NewGRPCServer(svc)
	s.http = &http.Server{Handler: s.mux}

	return s
}

// Handler returns the HTTP handler serving the Connect endpoints.
func (s *LoxServer) Handler() http.Handler { return s.mux }

// Service returns the underlying EvalService.
func (s *LoxServer) Service() *EvalService { return s.service }

// ListenAndServe starts the Connect server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *LoxServer) ListenAndServe(addr string) error {
	s.log.Infof("Connect listening on %s", addr)
	fmt.Printf("Lox evaluation server listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP, cbor/json): http://%s%s\n", addr, EvaluateProcedure)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	err = s.http.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves gRPC on lis until Stop is called.
func (s *LoxServer) ServeGRPC(lis net.Listener) error {
	s.log.Infof("gRPC listening on %s", lis.Addr())
	fmt.Printf("  gRPC (cbor):               grpc://%s\n", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down both transports and the worker.
func (s *LoxServer) Stop() {
	s.grpc.Stop()
	s.http.Close()
	s.worker.Stop()
	s.log.Info("server stopped")
}
