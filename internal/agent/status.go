package agent

import (
	"sync/atomic"
	"time"

	"field-monitor/internal/model"
	"field-monitor/internal/store"
)

// RunStatus is written by the sampling loop and read by the status logger.
type RunStatus struct {
	rowsWritten   atomic.Int64
	storeHealthy  atomic.Bool
	lastRowAt     atomic.Int64
	lastElapsedMS atomic.Int64
	lastLatency   atomic.Int64
	reachable     atomic.Bool
	gpsFix        atomic.Bool
	now           func() time.Time
}

func NewRunStatus() *RunStatus {
	h := &RunStatus{now: time.Now}
	h.storeHealthy.Store(false)
	return h
}

func (h *RunStatus) SetStoreHealthy(ok bool) {
	h.storeHealthy.Store(ok)
}

func (h *RunStatus) MarkRow(ts time.Time) {
	h.rowsWritten.Add(1)
	h.lastRowAt.Store(ts.UnixNano())
}

func (h *RunStatus) RowsWritten() int64 {
	return h.rowsWritten.Load()
}

// ObserveTick records the outcome of one sampling tick.
func (h *RunStatus) ObserveTick(sample model.Sample, latency time.Duration) {
	h.lastElapsedMS.Store(sample.ElapsedMS)
	h.lastLatency.Store(int64(latency))
	h.reachable.Store(sample.Reachable)
	_, ok := sample.Position.Fix()
	h.gpsFix.Store(ok)
}

func (h *RunStatus) Snapshot() map[string]any {
	out := map[string]any{
		"rows_written":     h.rowsWritten.Load(),
		"store_healthy":    h.storeHealthy.Load(),
		"target_reachable": h.reachable.Load(),
		"gps_fix":          h.gpsFix.Load(),
	}
	if v := h.lastRowAt.Load(); v > 0 {
		out["last_row_at"] = time.Unix(0, v).UTC()
		out["last_elapsed_ms"] = h.lastElapsedMS.Load()
		out["last_tick_latency"] = time.Duration(h.lastLatency.Load())
	}
	return out
}

// statusStore counts rows as they reach the underlying store.
type statusStore struct {
	store  store.Store
	status *RunStatus
}

func (s *statusStore) Create(schema model.Schema) error {
	err := s.store.Create(schema)
	s.status.SetStoreHealthy(err == nil)
	return err
}

func (s *statusStore) Append(sample model.Sample) error {
	if err := s.store.Append(sample); err != nil {
		s.status.SetStoreHealthy(false)
		return err
	}
	s.status.SetStoreHealthy(true)
	s.status.MarkRow(s.status.now())
	return nil
}

func (s *statusStore) Path() string {
	return s.store.Path()
}

func (s *statusStore) Close() error {
	return s.store.Close()
}
