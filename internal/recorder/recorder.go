package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"field-monitor/internal/config"
	"field-monitor/internal/model"
	"field-monitor/internal/store"
)

type State int32

const (
	StateRunning State = iota
	StateStopping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type NetworkMeter interface {
	Measure(ctx context.Context) (model.NetworkDelta, error)
}

type ProcessMeter interface {
	Measure(ctx context.Context) model.ProcessUsage
}

type Pinger interface {
	Probe(ctx context.Context, address string) bool
}

// PositionSource is probed once before the run and polled on every tick.
type PositionSource interface {
	Probe(ctx context.Context) bool
	Poll(ctx context.Context) (model.PositionFix, bool)
	Last() model.Position
}

// Observer is told about every row once it has been stored.
type Observer interface {
	ObserveTick(sample model.Sample, latency time.Duration)
}

type Deps struct {
	Network  NetworkMeter
	Process  ProcessMeter
	Pinger   Pinger
	Position PositionSource
	Store    store.Store
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

type Settings struct {
	Duration      time.Duration
	Timestep      time.Duration
	IsTarget      bool
	TargetAddress string
	GPSMode       config.GPSMode
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Duration:      cfg.Duration,
		Timestep:      cfg.Timestep,
		IsTarget:      cfg.IsTarget,
		TargetAddress: cfg.TargetAddress,
		GPSMode:       cfg.GPSMode,
	}
}

// Recorder drives the sequential sampling loop of one run.
type Recorder struct {
	deps      Deps
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time
	startedAt time.Time

	state    atomic.Int32
	prepared bool
	schema   model.Schema
	last     model.Sample
	rows     int
}

// New records the run start; every row timestamp is relative to it.
func New(deps Deps, settings Settings, logger *slog.Logger) *Recorder {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	r := &Recorder{
		deps:      deps,
		settings:  settings,
		logger:    logger,
		now:       now,
		startedAt: now(),
	}
	r.state.Store(int32(StateRunning))
	return r
}

func (r *Recorder) State() State {
	return State(r.state.Load())
}

func (r *Recorder) Schema() model.Schema {
	return r.schema
}

// Rows is the number of rows appended, including the closing row.
func (r *Recorder) Rows() int {
	return r.rows
}

// Prepare fixes the schema for the run and writes the header.
func (r *Recorder) Prepare(ctx context.Context) (model.Schema, error) {
	schema := model.Schema{Reachability: !r.settings.IsTarget}
	switch r.settings.GPSMode {
	case config.GPSModeOn:
		schema.Position = true
	case config.GPSModeOff:
		schema.Position = false
	default:
		schema.Position = r.deps.Position != nil && r.deps.Position.Probe(ctx)
	}
	if schema.Position && r.deps.Position == nil {
		return model.Schema{}, errors.New("position columns enabled without a position source")
	}
	if schema.Reachability && r.deps.Pinger == nil {
		return model.Schema{}, errors.New("reachability column enabled without a pinger")
	}

	if err := r.deps.Store.Create(schema); err != nil {
		return model.Schema{}, unwritable("create store", err)
	}
	r.schema = schema
	r.prepared = true
	r.logger.Info("time series created",
		"path", r.deps.Store.Path(),
		"reachability", schema.Reachability,
		"position", schema.Position,
		"columns", len(schema.Header()),
	)
	return schema, nil
}

// Run samples until the configured duration has elapsed since the loop
// started, or ctx is cancelled, then writes the last sample once more.
// Cancellation is only observed between ticks.
func (r *Recorder) Run(ctx context.Context) error {
	if !r.prepared {
		return errors.New("recorder run before prepare")
	}
	measureCtx := context.WithoutCancel(ctx)
	loopStart := r.now()
	r.logger.Info("sampling started", "duration", r.settings.Duration, "timestep", r.settings.Timestep)

	for r.State() == StateRunning {
		tickStart := r.now()
		sample := r.collect(measureCtx)
		if err := r.deps.Store.Append(sample); err != nil {
			return unwritable("append sample", err)
		}
		r.last = sample
		r.rows++
		latency := r.now().Sub(tickStart)
		if r.deps.Observer != nil {
			r.deps.Observer.ObserveTick(sample, latency)
		}
		r.logger.Debug("sample recorded", "elapsed_ms", sample.ElapsedMS, "latency", latency, "reachable", sample.Reachable)

		if r.now().Sub(loopStart) >= r.settings.Duration {
			r.state.Store(int32(StateStopping))
		} else if ctx.Err() != nil {
			r.logger.Info("sampling interrupted", "error", ctx.Err())
			r.state.Store(int32(StateStopping))
		}
	}

	if err := r.deps.Store.Append(r.last); err != nil {
		return unwritable("append closing sample", err)
	}
	r.rows++
	r.state.Store(int32(StateDone))
	r.logger.Info("experiment concluded", "rows", r.rows, "elapsed", r.now().Sub(loopStart))
	return nil
}

func (r *Recorder) collect(ctx context.Context) model.Sample {
	delta, err := r.deps.Network.Measure(ctx)
	if err != nil {
		r.logger.Warn("network counters unavailable", "error", err)
		delta = model.NetworkDelta{}
	}
	sample := model.Sample{
		Network:  delta,
		Process:  r.deps.Process.Measure(ctx),
		Position: model.NoPosition(),
	}
	if r.schema.Reachability {
		sample.Reachable = r.deps.Pinger.Probe(ctx, r.settings.TargetAddress)
	}
	if r.schema.Position {
		r.deps.Position.Poll(ctx)
		sample.Position = r.deps.Position.Last()
	}
	sample.ElapsedMS = r.now().Sub(r.startedAt).Milliseconds()
	return sample
}

func unwritable(op string, err error) error {
	if errors.Is(err, store.ErrUnwritable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnwritable, err)
}
