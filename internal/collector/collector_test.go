package collector

import (
	"context"
	"io"
	"log/slog"
	"time"

	"field-monitor/internal/system"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProcess struct {
	pid      int32
	name     string
	cpuPct   float64
	cpuTime  float64
	memPct   float64
	rss      uint64
	err      error
	window   time.Duration
	nameErr  error
	memError error
}

func (p *fakeProcess) PID() int32 { return p.pid }

func (p *fakeProcess) Name(context.Context) (string, error) {
	return p.name, p.nameErr
}

func (p *fakeProcess) CPUPercent(_ context.Context, window time.Duration) (float64, error) {
	p.window = window
	return p.cpuPct, p.err
}

func (p *fakeProcess) CPUTimeSeconds(context.Context) (float64, error) {
	return p.cpuTime, nil
}

func (p *fakeProcess) MemoryPercent(context.Context) (float64, error) {
	return p.memPct, p.memError
}

func (p *fakeProcess) ResidentBytes(context.Context) (uint64, error) {
	return p.rss, nil
}

type fakeTable struct {
	procs []system.Process
	err   error
	calls int
}

func (t *fakeTable) Processes(context.Context) ([]system.Process, error) {
	t.calls++
	return t.procs, t.err
}
