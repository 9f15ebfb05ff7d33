package system

import (
	"context"
	"fmt"
	"time"

	gprocess "github.com/shirou/gopsutil/v3/process"
)

// Process is the part of a live process handle read by the aggregator.
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	CPUTimeSeconds(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	ResidentBytes(ctx context.Context) (uint64, error)
}

// ProcessTable enumerates the live processes.
type ProcessTable interface {
	Processes(ctx context.Context) ([]Process, error)
}

// HostProcessTable reads the process table of the local host.
type HostProcessTable struct{}

func (HostProcessTable) Processes(ctx context.Context) ([]Process, error) {
	procs, err := gprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, hostProcess{p: p})
	}
	return out, nil
}

type hostProcess struct {
	p *gprocess.Process
}

func (h hostProcess) PID() int32 {
	return h.p.Pid
}

func (h hostProcess) Name(ctx context.Context) (string, error) {
	return h.p.NameWithContext(ctx)
}

// CPUPercent blocks for window and reports usage over it; 100 is one full core.
func (h hostProcess) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	return h.p.PercentWithContext(ctx, window)
}

func (h hostProcess) CPUTimeSeconds(ctx context.Context) (float64, error) {
	times, err := h.p.TimesWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return times.User + times.System, nil
}

func (h hostProcess) MemoryPercent(ctx context.Context) (float64, error) {
	pct, err := h.p.MemoryPercentWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float64(pct), nil
}

func (h hostProcess) ResidentBytes(ctx context.Context) (uint64, error) {
	info, err := h.p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, fmt.Errorf("pid %d: empty memory info", h.p.Pid)
	}
	return info.RSS, nil
}
