package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/metricsd/internal/config"
	"github.com/fyrsmithlabs/metricsd/internal/logging"
	"github.com/fyrsmithlabs/metricsd/internal/metricsserver"
	"github.com/fyrsmithlabs/metricsd/internal/telemetry"
)

// runServe loads configuration, starts the daemon and blocks until ctx is
// cancelled.
func runServe(ctx context.Context, flags *serveFlags) error {
	cfg, err := config.LoadWithFile(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.address != "" {
		cfg.Metrics.Address = flags.address
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logCfg, err := logging.NewConfigFrom(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	d, err := startDaemon(cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to start metricsd", zap.Error(err))
		return err
	}

	return d.run(ctx)
}

// daemon holds everything serve starts.
type daemon struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	handle   *telemetry.Handle
	server   *metricsserver.Server
	workload *hostWorkload
}

// startDaemon initializes telemetry, binds the metrics endpoint and
// registers the host workload. Nothing runs in the background except the
// endpoint's worker until run is called.
//
// This function initializes in order:
//  1. Telemetry (registry, runtime collectors, OTel bridge)
//  2. The metrics endpoint on cfg.Metrics.Address
//  3. Exporter self statistics
//  4. Host workload metrics
func startDaemon(cfg *config.Config, logger *logging.Logger) (*daemon, error) {
	ctx := context.Background()

	tel, err := telemetry.New(telemetry.NewConfigFrom(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded, OTel instruments disabled", zap.String("reason", health.Reason))
	}
	if mp := tel.MeterProvider(); mp != nil {
		otel.SetMeterProvider(mp)
	}

	handle := telemetry.NewHandle(tel)

	srv, err := metricsserver.Run(cfg.Metrics.Address, handle,
		metricsserver.WithLogger(logger),
		metricsserver.WithAcceptErrorThrottle(cfg.Logging.ThrottleInterval.Duration()),
	)
	if err != nil {
		_ = tel.Shutdown(ctx)
		var bindErr *metricsserver.BindError
		if errors.As(err, &bindErr) {
			return nil, fmt.Errorf("metrics endpoint unavailable on %s: %w", bindErr.Address, err)
		}
		return nil, err
	}

	if err := handle.Update(func(t *telemetry.Telemetry) error {
		return t.Register(srv.Collector(t.Namespace()))
	}); err != nil {
		return nil, abortStartup(srv, tel, cfg, fmt.Errorf("failed to register exporter stats: %w", err))
	}

	workload, err := newHostWorkload(handle, logger, cfg.Server.HeartbeatInterval.Duration())
	if err != nil {
		return nil, abortStartup(srv, tel, cfg, fmt.Errorf("failed to register host workload: %w", err))
	}

	logger.Info(ctx, "metricsd started",
		zap.String("version", version),
		zap.String("address", srv.Addr().String()),
		zap.String("instance_id", tel.InstanceID()),
		zap.Duration("heartbeat_interval", cfg.Server.HeartbeatInterval.Duration()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	return &daemon{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		handle:   handle,
		server:   srv,
		workload: workload,
	}, nil
}

// abortStartup releases the endpoint and telemetry after a failed startup
// and returns cause joined with any shutdown errors.
func abortStartup(srv *metricsserver.Server, tel *telemetry.Telemetry, cfg *config.Config, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return errors.Join(cause, srv.Shutdown(ctx), tel.Shutdown(ctx))
}

// errEndpointStopped is returned by run when the metrics endpoint exits
// without being shut down.
var errEndpointStopped = errors.New("metrics endpoint stopped unexpectedly")

// run drives the host workload until ctx is cancelled or the endpoint
// stops, then shuts everything down within the configured timeout.
func (d *daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var errs []error
	var wg conc.WaitGroup
	wg.Go(func() {
		d.workload.run(ctx)
	})

	select {
	case <-ctx.Done():
		d.logger.Info(context.Background(), "shutting down metricsd")
	case <-d.server.Done():
		d.logger.Error(context.Background(), "metrics endpoint stopped unexpectedly")
		errs = append(errs, errEndpointStopped)
	}
	cancel()

	if err := shutdownServer(d.server, d.cfg); err != nil {
		errs = append(errs, fmt.Errorf("metrics endpoint shutdown: %w", err))
	}

	if r := wg.WaitAndRecover(); r != nil {
		d.logger.Error(context.Background(), "host workload panicked", zap.Error(r.AsError()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := d.tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	d.logger.Info(context.Background(), "metricsd shutdown complete")
	return errors.Join(errs...)
}

func shutdownServer(srv *metricsserver.Server, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(ctx)
}
