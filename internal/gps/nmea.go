package gps

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"field-monitor/internal/model"
)

// GGAPrefix starts the fix-data sentence of a GPS talker.
const GGAPrefix = "$GPGGA"

var (
	ErrNotGGA             = errors.New("not a GGA sentence")
	ErrIncompleteSentence = errors.New("incomplete GGA sentence")
	ErrChecksum           = errors.New("nmea checksum mismatch")
)

// GGA field positions after splitting on commas.
const (
	ggaLatitude     = 2
	ggaLatHemi      = 3
	ggaLongitude    = 4
	ggaLonHemi      = 5
	ggaAltitude     = 9
	ggaMinFieldsLen = ggaAltitude + 1
)

// DecodeCoordinate converts an NMEA DDDMM.MMMM value into signed decimal
// degrees. S and W hemispheres are negative.
func DecodeCoordinate(raw, hemisphere string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("coordinate %q out of range", raw)
	}
	degrees := math.Floor(v / 100)
	minutes := v - degrees*100
	decimal := degrees + minutes/60

	switch strings.ToUpper(strings.TrimSpace(hemisphere)) {
	case "N", "E":
		return decimal, nil
	case "S", "W":
		return -decimal, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere %q", hemisphere)
	}
}

// ParseGGA decodes latitude, longitude and altitude from a $GPGGA sentence.
// A trailing *hh checksum is verified when present.
func ParseGGA(line string) (model.PositionFix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, GGAPrefix) {
		return model.PositionFix{}, ErrNotGGA
	}

	body := line
	if star := strings.LastIndexByte(line, '*'); star >= 0 {
		if err := verifyChecksum(line[1:star], line[star+1:]); err != nil {
			return model.PositionFix{}, err
		}
		body = line[:star]
	}

	fields := strings.Split(body, ",")
	if len(fields) < ggaMinFieldsLen {
		return model.PositionFix{}, fmt.Errorf("%w: %d fields", ErrIncompleteSentence, len(fields))
	}
	for _, i := range []int{ggaLatitude, ggaLatHemi, ggaLongitude, ggaLonHemi, ggaAltitude} {
		if strings.TrimSpace(fields[i]) == "" {
			return model.PositionFix{}, fmt.Errorf("%w: field %d empty", ErrIncompleteSentence, i)
		}
	}

	lat, err := DecodeCoordinate(fields[ggaLatitude], fields[ggaLatHemi])
	if err != nil {
		return model.PositionFix{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := DecodeCoordinate(fields[ggaLongitude], fields[ggaLonHemi])
	if err != nil {
		return model.PositionFix{}, fmt.Errorf("longitude: %w", err)
	}
	alt, err := strconv.ParseFloat(strings.TrimSpace(fields[ggaAltitude]), 64)
	if err != nil {
		return model.PositionFix{}, fmt.Errorf("altitude %q: %w", fields[ggaAltitude], err)
	}
	return model.PositionFix{Latitude: lat, Longitude: lon, Altitude: alt}, nil
}

// Checksum is the XOR of every byte between '$' and '*'.
func Checksum(payload string) byte {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}

func verifyChecksum(payload, hex string) error {
	want, err := strconv.ParseUint(strings.TrimSpace(hex), 16, 8)
	if err != nil {
		return fmt.Errorf("%w: bad checksum field %q", ErrChecksum, hex)
	}
	if got := Checksum(payload); got != byte(want) {
		return fmt.Errorf("%w: got %02X want %02X", ErrChecksum, got, byte(want))
	}
	return nil
}
