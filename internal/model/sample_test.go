package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSchemaHeaderOrder(t *testing.T) {
	cases := []struct {
		name   string
		schema Schema
		tail   []string
	}{
		{name: "base", schema: Schema{}, tail: []string{"RAM_percent", "RAM_info"}},
		{name: "reachability", schema: Schema{Reachability: true}, tail: []string{"RAM_info", "Ping_target"}},
		{name: "position", schema: Schema{Position: true}, tail: []string{"RAM_info", "LAT", "LONG", "ALT"}},
		{name: "both", schema: Schema{Reachability: true, Position: true}, tail: []string{"Ping_target", "LAT", "LONG", "ALT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			header := tc.schema.Header()
			if header[0] != "Timestamp" {
				t.Fatalf("expected Timestamp first, got %s", header[0])
			}
			got := strings.Join(header[len(header)-len(tc.tail):], ",")
			want := strings.Join(tc.tail, ",")
			if got != want {
				t.Fatalf("expected header tail %s, got %s", want, got)
			}
		})
	}
}

func TestSampleValuesMatchHeader(t *testing.T) {
	s := Sample{
		ElapsedMS: 1200,
		Network:   NetworkDelta{BytesSent: 10, DropOut: 3},
		Process:   ProcessUsage{CPUPercent: 12.5, RAMBytes: 2048},
		Reachable: true,
		Position:  FixedPosition(PositionFix{Latitude: 1, Longitude: 2, Altitude: 3}),
	}
	for _, schema := range []Schema{{}, {Reachability: true}, {Position: true}, {Reachability: true, Position: true}} {
		values := s.Values(schema)
		if len(values) != len(schema.Header()) {
			t.Fatalf("schema %+v: expected %d values, got %d", schema, len(schema.Header()), len(values))
		}
	}

	values := s.Values(Schema{Reachability: true, Position: true})
	if values[0] != int64(1200) {
		t.Fatalf("expected elapsed 1200, got %v", values[0])
	}
	if values[8] != uint64(3) {
		t.Fatalf("expected drop out 3 at index 8, got %v", values[8])
	}
	if values[13] != 1 {
		t.Fatalf("expected reachable flag 1, got %v", values[13])
	}
	if values[16] != float64(3) {
		t.Fatalf("expected altitude 3, got %v", values[16])
	}
}

func TestSampleValuesWithoutFix(t *testing.T) {
	s := Sample{Position: NoPosition()}
	values := s.Values(Schema{Reachability: true, Position: true})
	if values[13] != 0 {
		t.Fatalf("expected unreachable flag 0, got %v", values[13])
	}
	for i := 14; i < 17; i++ {
		if values[i] != nil {
			t.Fatalf("expected nil position cell at %d, got %v", i, values[i])
		}
	}
}

func TestPositionZeroFixIsValid(t *testing.T) {
	p := FixedPosition(PositionFix{})
	if _, ok := p.Fix(); !ok {
		t.Fatal("expected (0,0,0) fix to be valid")
	}
	if _, ok := NoPosition().Fix(); ok {
		t.Fatal("expected NoPosition to carry no fix")
	}

	raw, err := json.Marshal(NoPosition())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null, got %s", raw)
	}
}

func TestProcessUsageAdd(t *testing.T) {
	got := ProcessUsage{CPUPercent: 1, CPUTimeSeconds: 2, RAMPercent: 3, RAMBytes: 4}.
		Add(ProcessUsage{CPUPercent: 1, CPUTimeSeconds: 1, RAMPercent: 1, RAMBytes: 1})
	want := ProcessUsage{CPUPercent: 2, CPUTimeSeconds: 3, RAMPercent: 4, RAMBytes: 5}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
