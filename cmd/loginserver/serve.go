// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/UniversoExpandido2018/UE-1/internal/config"
	"github.com/UniversoExpandido2018/UE-1/internal/control"
	"github.com/UniversoExpandido2018/UE-1/internal/logging"
	"github.com/UniversoExpandido2018/UE-1/internal/observability"
	"github.com/UniversoExpandido2018/UE-1/internal/telnet"
)

const (
	serviceName     = "loginserver"
	shutdownTimeout = 5 * time.Second
)

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// BackendsFactory opens the persistent stores.
	// Default: PostgreSQL via store.Open.
	BackendsFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, func(), error)

	// LogWriter receives log output. Default: os.Stderr.
	LogWriter io.Writer

	// OnReady is called with the login listener address once it accepts
	// connections.
	OnReady func(addr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the login server",
		Long: `Start the login listener along with the metrics/health HTTP server and
the gRPC health service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, deps)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendsFactory == nil {
		deps.BackendsFactory = openPostgres
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, deps.LogWriter)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backends, closeBackends, err := deps.BackendsFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("BACKENDS_OPEN_FAILED").With("operation", "open backends").Wrap(err)
	}
	defer closeBackends()
	logger.Info("backends ready")

	var ready atomic.Bool
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, ready.Load, observability.WithLogger(logger))
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	core, err := buildLoginCore(cfg, backends, logger, metrics)
	if err != nil {
		return oops.Code("LOGIN_CORE_FAILED").With("operation", "assemble login core").Wrap(err)
	}
	defer core.wait()

	listener, err := telnet.NewServer(cfg.Server.ListenAddr, core.orchestrator,
		telnet.WithLogger(logger),
		telnet.WithRecorder(metrics),
	)
	if err != nil {
		return err
	}

	var health *control.HealthServer
	if cfg.Server.HealthAddr != "" {
		health, err = control.NewHealthServer(serviceName, control.WithLogger(logger))
		if err != nil {
			return err
		}
		healthErrCh, err := health.Start(cfg.Server.HealthAddr)
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, healthErrCh, "health-grpc", logger)
	}

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopHealth(health, logger)
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	runCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listener.Run(runCtx)
	}()

	select {
	case <-listener.Ready():
	case err := <-listenErr:
		stopHealth(health, logger)
		stopObservability(obsServer, logger)
		return err
	}

	ready.Store(true)
	if health != nil {
		health.SetServing(true)
	}
	cmd.Println("Login server started")
	logger.Info("login server ready",
		"listen_addr", listener.Addr(),
		"required_version", cfg.Login.RequiredVersion,
		"auto_registration", cfg.Login.AutoRegistration,
		"session_api", cfg.SessionAPI.URL != "",
	)
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr())
	}

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case runErr = <-listenErr:
		logger.Error("login listener stopped", "error", runErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	ready.Store(false)
	if health != nil {
		health.SetServing(false)
	}

	stopListener()
	if runErr == nil {
		runErr = <-listenErr
	}

	stopObservability(obsServer, logger)
	stopHealth(health, logger)

	logger.Info("shutdown complete")
	return runErr
}

func stopHealth(health *control.HealthServer, logger *slog.Logger) {
	if health == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := health.Stop(ctx); err != nil {
		logger.Warn("error stopping health server", "error", err)
	}
}

func stopObservability(obs *observability.Server, logger *slog.Logger) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error.
// It returns when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok || err == nil {
			return
		}
		logger.Error("server error, triggering shutdown",
			"server", serverName,
			"error", err,
		)
		cancel()
	case <-ctx.Done():
	}
}
