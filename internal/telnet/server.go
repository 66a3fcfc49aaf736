// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package telnet provides a line-protocol transport for the login server.
package telnet

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/login"
	"github.com/UniversoExpandido2018/UE-1/internal/session"
)

// LoginStarter starts login attempts.
type LoginStarter interface {
	Login(ctx context.Context, client session.Client, req login.Request) *login.Attempt
}

// ConnectionRecorder counts accepted connections.
type ConnectionRecorder interface {
	RecordConnection(connType string)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the connection metrics recorder.
func WithRecorder(r ConnectionRecorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// Server is a telnet server.
type Server struct {
	addr     string
	starter  LoginStarter
	recorder ConnectionRecorder
	logger   *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a new telnet server.
func NewServer(addr string, starter LoginStarter, opts ...Option) (*Server, error) {
	if starter == nil {
		return nil, oops.Errorf("login starter is required")
	}
	s := &Server{
		addr:    addr,
		starter: starter,
		logger:  slog.New(slog.DiscardHandler),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Run starts the server and blocks until ctx is cancelled and every
// connection has been closed.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return oops.Code("TELNET_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("telnet server started", "addr", listener.Addr().String())

	var conns sync.WaitGroup
	defer conns.Wait()

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			s.logger.Debug("error closing listener", "error", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		if s.recorder != nil {
			s.recorder.RecordConnection("telnet")
		}

		handler := NewConnectionHandler(conn, s.starter, s.logger)
		conns.Add(1)
		go func() {
			defer conns.Done()
			handler.Handle(ctx)
		}()
	}
}
