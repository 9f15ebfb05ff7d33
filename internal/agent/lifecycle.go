package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	if _, err := a.recorder.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare run: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	statusCtx, stopStatus := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopStatus()
		return a.recorder.Run(gctx)
	})
	g.Go(func() error {
		return a.runStatusLoop(statusCtx)
	})
	return g.Wait()
}

func (a *Agent) runStatusLoop(ctx context.Context) error {
	t := time.NewTicker(a.cfg.StatusInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.logStatus(slog.LevelInfo, "running")
		}
	}
}

func (a *Agent) logStatus(level slog.Level, state string) {
	a.logger.Log(context.Background(), level, "monitor status", "state", state, "snapshot", a.status.Snapshot())
}

func (a *Agent) shutdown() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
	a.logStatus(slog.LevelDebug, a.recorder.State().String())
}
