package system

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// NetCounters is a snapshot of the cumulative system-wide network counters.
type NetCounters struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	ErrorsSent  uint64
	ErrorsRecv  uint64
	DropIn      uint64
	DropOut     uint64
}

// ReadNetCounters returns counters summed over every interface, loopback included.
func ReadNetCounters(ctx context.Context) (NetCounters, error) {
	stats, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, fmt.Errorf("read net io counters: %w", err)
	}
	if len(stats) == 0 {
		return NetCounters{}, fmt.Errorf("net io counters: aggregate entry missing")
	}
	s := stats[0]
	return NetCounters{
		BytesSent:   s.BytesSent,
		BytesRecv:   s.BytesRecv,
		PacketsSent: s.PacketsSent,
		PacketsRecv: s.PacketsRecv,
		ErrorsSent:  s.Errout,
		ErrorsRecv:  s.Errin,
		DropIn:      s.Dropin,
		DropOut:     s.Dropout,
	}, nil
}
