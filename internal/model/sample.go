package model

// ColumnKind is the storage type of one time series column.
type ColumnKind int

const (
	ColumnInteger ColumnKind = iota
	ColumnReal
)

type Column struct {
	Name string
	Kind ColumnKind
}

var baseColumns = []Column{
	{Name: "Timestamp", Kind: ColumnInteger},
	{Name: "Bytes_Send", Kind: ColumnInteger},
	{Name: "Bytes_Received", Kind: ColumnInteger},
	{Name: "Packets_Send", Kind: ColumnInteger},
	{Name: "Packets_Received", Kind: ColumnInteger},
	{Name: "Errors_Send", Kind: ColumnInteger},
	{Name: "Errors_Received", Kind: ColumnInteger},
	{Name: "Drop_Incoming", Kind: ColumnInteger},
	{Name: "Drop_total", Kind: ColumnInteger},
	{Name: "CPU_percent", Kind: ColumnReal},
	{Name: "CPU_time", Kind: ColumnReal},
	{Name: "RAM_percent", Kind: ColumnReal},
	{Name: "RAM_info", Kind: ColumnInteger},
}

var (
	reachabilityColumn = Column{Name: "Ping_target", Kind: ColumnInteger}
	positionColumns    = []Column{
		{Name: "LAT", Kind: ColumnReal},
		{Name: "LONG", Kind: ColumnReal},
		{Name: "ALT", Kind: ColumnReal},
	}
)

// Schema fixes which optional columns a run carries. It is decided once, when
// the header is written, and every row of the run follows it.
type Schema struct {
	Reachability bool `json:"reachability"`
	Position     bool `json:"position"`
}

func (s Schema) Columns() []Column {
	cols := make([]Column, 0, len(baseColumns)+1+len(positionColumns))
	cols = append(cols, baseColumns...)
	if s.Reachability {
		cols = append(cols, reachabilityColumn)
	}
	if s.Position {
		cols = append(cols, positionColumns...)
	}
	return cols
}

func (s Schema) Header() []string {
	cols := s.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Sample is one row of the time series.
type Sample struct {
	ElapsedMS int64        `json:"elapsed_ms"`
	Network   NetworkDelta `json:"network"`
	Process   ProcessUsage `json:"process"`
	Reachable bool         `json:"reachable"`
	Position  Position     `json:"position"`
}

// Values lays the sample out in schema column order. A missing position
// yields nil cells.
func (s Sample) Values(schema Schema) []any {
	out := make([]any, 0, len(baseColumns)+1+len(positionColumns))
	out = append(out,
		s.ElapsedMS,
		s.Network.BytesSent,
		s.Network.BytesRecv,
		s.Network.PacketsSent,
		s.Network.PacketsRecv,
		s.Network.ErrorsSent,
		s.Network.ErrorsRecv,
		s.Network.DropIn,
		s.Network.DropOut,
		s.Process.CPUPercent,
		s.Process.CPUTimeSeconds,
		s.Process.RAMPercent,
		s.Process.RAMBytes,
	)
	if schema.Reachability {
		reachable := 0
		if s.Reachable {
			reachable = 1
		}
		out = append(out, reachable)
	}
	if schema.Position {
		if fix, ok := s.Position.Fix(); ok {
			out = append(out, fix.Latitude, fix.Longitude, fix.Altitude)
		} else {
			out = append(out, nil, nil, nil)
		}
	}
	return out
}
