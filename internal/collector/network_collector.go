package collector

import (
	"context"

	"field-monitor/internal/model"
	"field-monitor/internal/system"
)

// CounterSource reads the cumulative network counters.
type CounterSource func(ctx context.Context) (system.NetCounters, error)

// NetworkCollector turns cumulative counters into per-call deltas. It is owned
// by a single goroutine and is not safe for concurrent use.
type NetworkCollector struct {
	read   CounterSource
	prev   system.NetCounters
	primed bool
}

func NewNetworkCollector(read CounterSource) *NetworkCollector {
	if read == nil {
		read = system.ReadNetCounters
	}
	return &NetworkCollector{read: read}
}

// Measure returns current minus previous for every counter. The first call
// has no baseline and reports zero. Counters are assumed not to wrap within a
// run, so a counter reset shows up as a wrapped unsigned difference.
func (c *NetworkCollector) Measure(ctx context.Context) (model.NetworkDelta, error) {
	cur, err := c.read(ctx)
	if err != nil {
		return model.NetworkDelta{}, err
	}
	if !c.primed {
		c.prev = cur
		c.primed = true
	}
	prev := c.prev
	c.prev = cur

	return model.NetworkDelta{
		BytesSent:   cur.BytesSent - prev.BytesSent,
		BytesRecv:   cur.BytesRecv - prev.BytesRecv,
		PacketsSent: cur.PacketsSent - prev.PacketsSent,
		PacketsRecv: cur.PacketsRecv - prev.PacketsRecv,
		ErrorsSent:  cur.ErrorsSent - prev.ErrorsSent,
		ErrorsRecv:  cur.ErrorsRecv - prev.ErrorsRecv,
		DropIn:      cur.DropIn - prev.DropIn,
		DropOut:     cur.DropOut - prev.DropOut,
	}, nil
}
