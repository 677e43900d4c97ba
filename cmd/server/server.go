package main

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nickyhof/easyext/web"
)

const shutdownTimeout = 5 * time.Second

// Server is an HTTP server answering grid and tree requests.
type Server struct {
	mux      *web.Mux
	logger   *slog.Logger
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a server for the given routes.
func NewServer(mux *web.Mux, logger *slog.Logger) *Server {
	return &Server{
		mux:    mux,
		logger: logger,
	}
}

// Start begins listening on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.mux.Listener(listener); err != nil {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}

	err := s.mux.Shutdown(shutdownTimeout)
	s.wg.Wait()
	return err
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
