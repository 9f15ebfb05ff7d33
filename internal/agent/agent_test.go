package agent

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"field-monitor/internal/config"
	"field-monitor/internal/model"
	"field-monitor/internal/recorder"
	"field-monitor/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type steppingClock struct {
	t    time.Time
	step time.Duration
}

// Now advances on every read so each tick takes a few steps.
func (c *steppingClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type zeroNetwork struct{}

func (zeroNetwork) Measure(context.Context) (model.NetworkDelta, error) {
	return model.NetworkDelta{}, nil
}

type idleProcess struct{}

func (idleProcess) Measure(context.Context) model.ProcessUsage {
	return model.ProcessUsage{}
}

type downPinger struct{}

func (downPinger) Probe(context.Context, string) bool { return false }

func testConfig(dir string) config.Config {
	return config.Config{
		ExperimentName:  "bench",
		Duration:        time.Second,
		Timestep:        100 * time.Millisecond,
		DatasetPath:     dir,
		TargetAddress:   "192.0.2.1",
		ProcessName:     "ros2",
		CPUSampleWindow: 200 * time.Millisecond,
		PingTimeout:     time.Second,
		GPSMode:         config.GPSModeOff,
		StoreBackend:    store.BackendCSV,
		StatusInterval:  time.Hour,
		ShutdownTimeout: time.Second,
		AgentVersion:    config.HardcodedVersion,
		LogLevel:        "info",
	}
}

func TestAgentRunWritesRecord(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	st, err := store.New(cfg.StoreBackend, cfg.DatasetPath, cfg.ExperimentName)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	clock := &steppingClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: 50 * time.Millisecond}
	a := newAgent(cfg, discardLogger(), st, recorder.Deps{
		Network: zeroNetwork{},
		Process: idleProcess{},
		Pinger:  downPinger{},
		Now:     clock.Now,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "bench_global_monitoring.csv"))
	if err != nil {
		t.Fatalf("open record: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if len(records) < 3 {
		t.Fatalf("expected header, samples and closing row, got %d records", len(records))
	}
	if got := a.Status().RowsWritten(); got != int64(len(records)-1) {
		t.Fatalf("status counted %d rows, file has %d", got, len(records)-1)
	}
	if last := records[len(records)-1]; last[len(last)-1] != "0" {
		t.Fatalf("expected unreachable target, got %q", last[len(last)-1])
	}
}

func TestAgentRunCancelledFlushes(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Duration = time.Hour
	st, err := store.New(cfg.StoreBackend, cfg.DatasetPath, cfg.ExperimentName)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := newAgent(cfg, discardLogger(), st, recorder.Deps{
		Network: zeroNetwork{},
		Process: idleProcess{},
		Pinger:  downPinger{},
	})

	if err := a.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := a.Status().RowsWritten(); got != 2 {
		t.Fatalf("expected one sample and the closing row, got %d", got)
	}
	if a.recorder.State() != recorder.StateDone {
		t.Fatalf("expected done, got %s", a.recorder.State())
	}
}

func TestAgentRunStoreFailure(t *testing.T) {
	cfg := testConfig(t.TempDir())
	a := newAgent(cfg, discardLogger(), &flakyStore{fail: true}, recorder.Deps{
		Network: zeroNetwork{},
		Process: idleProcess{},
		Pinger:  downPinger{},
	})

	err := a.Run(context.Background())
	if !errors.Is(err, store.ErrUnwritable) {
		t.Fatalf("expected ErrUnwritable, got %v", err)
	}
}

func TestNewRejectsUnusableDatasetDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg := testConfig(filepath.Join(blocker, "dataset"))

	_, err := New(cfg, discardLogger())
	if !errors.Is(err, config.ErrInvalidConfig) || !errors.Is(err, store.ErrDatasetDir) {
		t.Fatalf("expected dataset dir config error, got %v", err)
	}
}

func TestBuildLoggerLevels(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError}
	for name, level := range cases {
		logger := BuildLogger(config.Config{LogLevel: name})
		if !logger.Enabled(context.Background(), level) {
			t.Fatalf("%s: expected level %s enabled", name, level)
		}
		if level > slog.LevelDebug && logger.Enabled(context.Background(), level-4) {
			t.Fatalf("%s: expected lower level disabled", name)
		}
	}
}
