package model

// ProcessUsage is the CPU/RAM usage summed over every process of a group.
type ProcessUsage struct {
	CPUPercent     float64 `json:"cpu_percent"`
	CPUTimeSeconds float64 `json:"cpu_time_seconds"`
	RAMPercent     float64 `json:"ram_percent"`
	RAMBytes       uint64  `json:"ram_bytes"`
}

func (u ProcessUsage) Add(o ProcessUsage) ProcessUsage {
	return ProcessUsage{
		CPUPercent:     u.CPUPercent + o.CPUPercent,
		CPUTimeSeconds: u.CPUTimeSeconds + o.CPUTimeSeconds,
		RAMPercent:     u.RAMPercent + o.RAMPercent,
		RAMBytes:       u.RAMBytes + o.RAMBytes,
	}
}
