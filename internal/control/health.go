// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package control exposes the gRPC health service used by orchestrators
// to probe the login server.
package control

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Option configures a HealthServer.
type Option func(*HealthServer)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HealthServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// HealthServer serves grpc.health.v1.Health for one component. It reports
// NOT_SERVING until SetServing(true) is called.
type HealthServer struct {
	component string
	health    *health.Server
	logger    *slog.Logger

	mu         sync.Mutex
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewHealthServer creates a health server for component.
func NewHealthServer(component string, opts ...Option) (*HealthServer, error) {
	if component == "" {
		return nil, oops.Errorf("component name cannot be empty")
	}
	s := &HealthServer{
		component: component,
		health:    health.NewServer(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetServing(false)
	return s, nil
}

// Component returns the service name reported alongside the overall status.
func (s *HealthServer) Component() string {
	return s.component
}

// Start listens on addr. The returned channel receives the serve error, or
// nil after a graceful stop.
func (s *HealthServer) Start(addr string) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil, oops.Code("HEALTH_ALREADY_RUNNING").Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.Code("HEALTH_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	srv := s.grpcServer
	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if err != nil {
			s.logger.Error("health gRPC server error", "component", s.component, "error", err)
		}
		errCh <- err
		close(errCh)
	}()

	s.logger.Info("health server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Addr returns the listen address, or "" before Start.
func (s *HealthServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetServing flips the overall and component status.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.component, status)
}

// Stop marks every service NOT_SERVING and stops the server. If ctx ends
// before in-flight RPCs drain, the server is stopped forcibly.
func (s *HealthServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	s.mu.Lock()
	srv := s.grpcServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		srv.Stop()
		<-done
		return oops.Code("HEALTH_STOP_TIMEOUT").Wrap(ctx.Err())
	}
}
