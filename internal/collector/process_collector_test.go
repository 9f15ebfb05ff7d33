package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"field-monitor/internal/model"
	"field-monitor/internal/system"
)

func TestProcessCollectorNoMatchIsZero(t *testing.T) {
	table := &fakeTable{procs: []system.Process{
		&fakeProcess{pid: 1, name: "systemd", cpuPct: 3, rss: 100},
		&fakeProcess{pid: 2, name: "ros2-daemon", cpuPct: 9, rss: 200},
	}}
	c := NewProcessCollector(table, "ros2", 0, discardLogger())

	got := c.Measure(context.Background())
	if got != (model.ProcessUsage{}) {
		t.Fatalf("expected zero usage, got %+v", got)
	}
}

func TestProcessCollectorSumsMatches(t *testing.T) {
	a := &fakeProcess{pid: 10, name: "ros2", cpuPct: 12.5, cpuTime: 1.5, memPct: 0.5, rss: 1000}
	b := &fakeProcess{pid: 11, name: "ros2", cpuPct: 7.5, cpuTime: 2.5, memPct: 1.0, rss: 3000}
	other := &fakeProcess{pid: 12, name: "bash", cpuPct: 50, cpuTime: 9, memPct: 9, rss: 9}
	table := &fakeTable{procs: []system.Process{a, other, b}}
	c := NewProcessCollector(table, "ros2", 0, discardLogger())

	got := c.Measure(context.Background())
	if math.Abs(got.CPUPercent-20) > 1e-9 || math.Abs(got.CPUTimeSeconds-4) > 1e-9 {
		t.Fatalf("unexpected cpu sums: %+v", got)
	}
	if math.Abs(got.RAMPercent-1.5) > 1e-9 || got.RAMBytes != 4000 {
		t.Fatalf("unexpected ram sums: %+v", got)
	}
	if a.window != defaultCPUWindow || b.window != defaultCPUWindow {
		t.Fatalf("expected default %s cpu window, got %s and %s", defaultCPUWindow, a.window, b.window)
	}
	if other.window != 0 {
		t.Fatal("non-matching process must not be sampled")
	}
}

func TestProcessCollectorFailedProcessContributesZero(t *testing.T) {
	ok := &fakeProcess{pid: 1, name: "ros2", cpuPct: 4, cpuTime: 1, memPct: 2, rss: 10}
	gone := &fakeProcess{pid: 2, name: "ros2", cpuPct: 80, cpuTime: 5, memPct: 1, rss: 99, memError: errors.New("process exited")}
	table := &fakeTable{procs: []system.Process{ok, gone}}
	c := NewProcessCollector(table, "ros2", 50*time.Millisecond, discardLogger())

	got := c.Measure(context.Background())
	want := model.ProcessUsage{CPUPercent: 4, CPUTimeSeconds: 1, RAMPercent: 2, RAMBytes: 10}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if ok.window != 50*time.Millisecond {
		t.Fatalf("expected configured window, got %s", ok.window)
	}
}

func TestProcessCollectorNameErrorSkipped(t *testing.T) {
	table := &fakeTable{procs: []system.Process{
		&fakeProcess{pid: 1, name: "ros2", nameErr: errors.New("no such process"), cpuPct: 10},
	}}
	c := NewProcessCollector(table, "ros2", 0, discardLogger())
	if got := c.Measure(context.Background()); got != (model.ProcessUsage{}) {
		t.Fatalf("expected zero usage, got %+v", got)
	}
}

func TestProcessCollectorListingFailure(t *testing.T) {
	table := &fakeTable{err: errors.New("permission denied")}
	c := NewProcessCollector(table, "ros2", 0, discardLogger())

	if got := c.Measure(context.Background()); got != (model.ProcessUsage{}) {
		t.Fatalf("expected zero usage, got %+v", got)
	}
}

func TestProcessCollectorEnumeratesEachCall(t *testing.T) {
	table := &fakeTable{}
	c := NewProcessCollector(table, "ros2", 0, discardLogger())
	c.Measure(context.Background())
	c.Measure(context.Background())
	if table.calls != 2 {
		t.Fatalf("expected the table to be read on every call, got %d reads", table.calls)
	}
}
