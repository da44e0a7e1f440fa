// Package httpserver runs a loopback HTTP listener with the same
// Start/Stop/Address lifecycle for every local endpoint.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/studywith/focuslink/internal/focus/common/log"
)

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Server is a single HTTP listener. Port 0 binds an ephemeral port; Address
// reports the bound one after Start.
type Server struct {
	name    string
	addr    string
	handler http.Handler
	logger  log.Logger

	mu       sync.RWMutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// New creates a Server named name (used in logs) for handler on addr.
func New(name, addr string, handler http.Handler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Server{name: name, addr: addr, handler: handler, logger: logger}
}

// Start binds the listener and serves in the background. Cancelling ctx
// does not stop the server; call Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return fmt.Errorf("%s server already running", s.name)
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s server on %s: %w", s.name, s.addr, err)
	}

	s.listener = l
	s.done = make(chan struct{})
	s.srv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info(map[string]any{
		"server":  s.name,
		"address": l.Addr().String(),
	}, "http_server_started")

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"server": s.name, "error": err}, "http_server_failed")
		}
	}(s.srv, s.done)

	return nil
}

// Stop shuts the server down gracefully, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err == nil {
		<-done
	}
	s.logger.Info(map[string]any{"server": s.name}, "http_server_stopped")
	return err
}

// Address returns the bound address while running, otherwise the
// configured one.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil && s.srv != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
