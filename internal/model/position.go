package model

import "encoding/json"

// PositionFix is one decoded GPS fix in signed decimal degrees and meters.
type PositionFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Position is either "no fix yet" or a fix. The zero value has no fix, so a
// legitimate fix at (0, 0, 0) stays distinguishable from the missing case.
type Position struct {
	fix   PositionFix
	valid bool
}

func NoPosition() Position {
	return Position{}
}

func FixedPosition(fix PositionFix) Position {
	return Position{fix: fix, valid: true}
}

func (p Position) Fix() (PositionFix, bool) {
	return p.fix, p.valid
}

func (p Position) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.fix)
}
