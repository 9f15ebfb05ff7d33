package collector

import (
	"context"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultPingTimeout = time.Second

// CommandRunner runs an external command and reports its exit status as an error.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// ReachabilityProbe sends a single ICMP echo through the system ping binary.
type ReachabilityProbe struct {
	timeout time.Duration
	run     CommandRunner
	logger  *slog.Logger
}

func NewReachabilityProbe(timeout time.Duration, logger *slog.Logger) *ReachabilityProbe {
	return NewReachabilityProbeWithRunner(timeout, runCommand, logger)
}

func NewReachabilityProbeWithRunner(timeout time.Duration, run CommandRunner, logger *slog.Logger) *ReachabilityProbe {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	if run == nil {
		run = runCommand
	}
	return &ReachabilityProbe{timeout: timeout, run: run, logger: logger}
}

// Probe reports whether address answered one echo within the timeout. Every
// failure, including a missing ping binary or an unresolvable name, is false.
func (p *ReachabilityProbe) Probe(ctx context.Context, address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}

	// ping enforces -W itself; the deadline only reaps a hung process.
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	if err := p.run(ctx, "ping", p.args(address)...); err != nil {
		p.logger.Debug("target unreachable", "address", address, "error", err)
		return false
	}
	return true
}

func (p *ReachabilityProbe) args(address string) []string {
	wait := int(math.Ceil(p.timeout.Seconds()))
	if wait < 1 {
		wait = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(wait), address}
}
