package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"field-monitor/internal/collector"
	"field-monitor/internal/config"
	"field-monitor/internal/gps"
	"field-monitor/internal/recorder"
	"field-monitor/internal/store"
	"field-monitor/internal/system"
)

type Agent struct {
	cfg      config.Config
	logger   *slog.Logger
	store    store.Store
	recorder *recorder.Recorder
	status   *RunStatus
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	st, err := store.New(cfg.StoreBackend, cfg.DatasetPath, cfg.ExperimentName)
	if err != nil {
		if errors.Is(err, store.ErrDatasetDir) {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		return nil, fmt.Errorf("time series store: %w", err)
	}

	deps := recorder.Deps{
		Network: collector.NewNetworkCollector(system.ReadNetCounters),
		Process: collector.NewProcessCollector(system.HostProcessTable{}, cfg.ProcessName, cfg.CPUSampleWindow, logger),
		Pinger:  collector.NewReachabilityProbe(cfg.PingTimeout, logger),
	}
	if cfg.GPSMode != config.GPSModeOff {
		deps.Position = gps.NewDecoder(gps.Config{
			Device:      cfg.GPSDevice,
			BaudRate:    cfg.GPSBaudRate,
			ReadTimeout: cfg.GPSReadTimeout,
		}, gps.OpenSerial, logger)
	}
	return newAgent(cfg, logger, st, deps), nil
}

func newAgent(cfg config.Config, logger *slog.Logger, st store.Store, deps recorder.Deps) *Agent {
	status := NewRunStatus()
	wrappedStore := &statusStore{store: st, status: status}
	deps.Store = wrappedStore
	deps.Observer = status
	if deps.Now != nil {
		status.now = deps.Now
	}

	return &Agent{
		cfg:      cfg,
		logger:   logger,
		store:    wrappedStore,
		recorder: recorder.New(deps, recorder.SettingsFromConfig(cfg), logger),
		status:   status,
	}
}

func (a *Agent) Status() *RunStatus {
	return a.status
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting field monitor",
		"experiment", a.cfg.ExperimentName,
		"version", a.cfg.AgentVersion,
		"store", a.store.Path(),
		"duration", a.cfg.Duration,
		"is_target", a.cfg.IsTarget,
	)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, finishing current tick", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, stopping without closing row", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, stopping without closing row", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	a.shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("field monitor stopped", "rows", a.status.RowsWritten(), "state", a.recorder.State().String())
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
