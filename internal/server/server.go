package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server runs the presentation API
type Server struct {
	logger *zap.Logger
	hub    *Hub
	srv    *http.Server

	mu   sync.Mutex
	addr string
	done chan struct{}
}

// NewServer creates a server listening on addr
func NewServer(logger *zap.Logger, addr string, handler http.Handler, hub *Hub) *Server {
	return &Server{
		logger: logger,
		hub:    hub,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info("Presentation API listening", zap.String("addr", s.addr))

	go func() {
		defer close(done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Presentation API stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes websocket clients and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()

	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	s.logger.Info("Presentation API stopped")
	return err
}
