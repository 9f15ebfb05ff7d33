package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"field-monitor/internal/model"
	"field-monitor/internal/system"
)

const defaultCPUWindow = 200 * time.Millisecond

// ProcessCollector sums CPU and memory usage over every process whose name
// equals the target exactly. The process table is read fresh on each call.
type ProcessCollector struct {
	table     system.ProcessTable
	name      string
	cpuWindow time.Duration
	logger    *slog.Logger
}

func NewProcessCollector(table system.ProcessTable, name string, cpuWindow time.Duration, logger *slog.Logger) *ProcessCollector {
	if cpuWindow <= 0 {
		cpuWindow = defaultCPUWindow
	}
	return &ProcessCollector{table: table, name: name, cpuWindow: cpuWindow, logger: logger}
}

// Measure never fails: no match, a failed listing or a process that exits
// mid-query all contribute zero. Each match blocks for the CPU window.
func (c *ProcessCollector) Measure(ctx context.Context) model.ProcessUsage {
	procs, err := c.table.Processes(ctx)
	if err != nil {
		c.logger.Warn("process table unavailable", "process", c.name, "error", err)
		return model.ProcessUsage{}
	}

	var total model.ProcessUsage
	matched := 0
	for _, p := range procs {
		name, err := p.Name(ctx)
		if err != nil || name != c.name {
			continue
		}
		matched++
		usage, err := c.measureOne(ctx, p)
		if err != nil {
			c.logger.Debug("process query failed", "process", c.name, "pid", p.PID(), "error", err)
			continue
		}
		total = total.Add(usage)
	}
	if matched == 0 {
		c.logger.Debug("no process matched", "process", c.name)
	}
	return total
}

func (c *ProcessCollector) measureOne(ctx context.Context, p system.Process) (model.ProcessUsage, error) {
	cpuPct, err := p.CPUPercent(ctx, c.cpuWindow)
	if err != nil {
		return model.ProcessUsage{}, fmt.Errorf("cpu percent: %w", err)
	}
	cpuTime, err := p.CPUTimeSeconds(ctx)
	if err != nil {
		return model.ProcessUsage{}, fmt.Errorf("cpu times: %w", err)
	}
	memPct, err := p.MemoryPercent(ctx)
	if err != nil {
		return model.ProcessUsage{}, fmt.Errorf("memory percent: %w", err)
	}
	rss, err := p.ResidentBytes(ctx)
	if err != nil {
		return model.ProcessUsage{}, fmt.Errorf("memory info: %w", err)
	}
	return model.ProcessUsage{
		CPUPercent:     cpuPct,
		CPUTimeSeconds: cpuTime,
		RAMPercent:     memPct,
		RAMBytes:       rss,
	}, nil
}
