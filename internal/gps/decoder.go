package gps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.bug.st/serial"

	"field-monitor/internal/model"
)

const (
	DefaultDevice      = "/dev/gps"
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 5 * time.Second

	maxLineLen = 512
)

var (
	ErrNoSentence  = errors.New("no GGA sentence before timeout")
	errReadTimeout = errors.New("serial read timeout")
)

type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// Opener opens the serial device for one poll.
type Opener func(device string, baud int, readTimeout time.Duration) (io.ReadCloser, error)

// OpenSerial opens a serial port whose Read returns (0, nil) once readTimeout
// passes without data.
func OpenSerial(device string, baud int, readTimeout time.Duration) (io.ReadCloser, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return port, nil
}

// Decoder polls a GPS receiver and keeps the last decoded fix. The port is
// opened and closed on every poll so the receiver may come and go during a run.
type Decoder struct {
	cfg    Config
	open   Opener
	logger *slog.Logger
	now    func() time.Time
	last   model.Position
}

func NewDecoder(cfg Config, open Opener, logger *slog.Logger) *Decoder {
	if strings.TrimSpace(cfg.Device) == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if open == nil {
		open = OpenSerial
	}
	return &Decoder{cfg: cfg, open: open, logger: logger, now: time.Now, last: model.NoPosition()}
}

// Probe reports whether a fix can currently be read. The fix itself is
// discarded and the last-known position is left untouched.
func (d *Decoder) Probe(ctx context.Context) bool {
	if _, err := d.read(ctx); err != nil {
		d.logger.Info("gps not available", "device", d.cfg.Device, "error", err)
		return false
	}
	return true
}

// Poll reads one fix. On failure it returns false and the last-known position
// is kept unchanged.
func (d *Decoder) Poll(ctx context.Context) (model.PositionFix, bool) {
	fix, err := d.read(ctx)
	if err != nil {
		d.logger.Warn("gps position unavailable", "device", d.cfg.Device, "error", err)
		return model.PositionFix{}, false
	}
	d.last = model.FixedPosition(fix)
	return fix, true
}

func (d *Decoder) Last() model.Position {
	return d.last
}

func (d *Decoder) read(ctx context.Context) (model.PositionFix, error) {
	port, err := d.open(d.cfg.Device, d.cfg.BaudRate, d.cfg.ReadTimeout)
	if err != nil {
		return model.PositionFix{}, err
	}
	defer func() { _ = port.Close() }()

	deadline := d.now().Add(d.cfg.ReadTimeout)
	lines := newLineReader(port)
	for {
		if err := ctx.Err(); err != nil {
			return model.PositionFix{}, err
		}
		if !d.now().Before(deadline) {
			return model.PositionFix{}, ErrNoSentence
		}
		line, err := lines.next()
		if err != nil {
			if errors.Is(err, errReadTimeout) || errors.Is(err, io.EOF) {
				return model.PositionFix{}, ErrNoSentence
			}
			return model.PositionFix{}, fmt.Errorf("read serial: %w", err)
		}
		if strings.HasPrefix(line, GGAPrefix) {
			return ParseGGA(line)
		}
	}
}

// lineReader splits a stream into trimmed lines. A Read that returns no data
// and no error is the serial read timeout.
type lineReader struct {
	r     io.Reader
	buf   []byte
	chunk [128]byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r}
}

func (l *lineReader) next() (string, error) {
	for {
		if i := bytes.IndexByte(l.buf, '\n'); i >= 0 {
			line := string(bytes.TrimSpace(l.buf[:i]))
			l.buf = l.buf[i+1:]
			return line, nil
		}
		if len(l.buf) > maxLineLen {
			// line noise without terminator
			l.buf = l.buf[:0]
		}
		n, err := l.r.Read(l.chunk[:])
		if n > 0 {
			l.buf = append(l.buf, l.chunk[:n]...)
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(l.buf)) > 0 {
				line := string(bytes.TrimSpace(l.buf))
				l.buf = l.buf[:0]
				return line, nil
			}
			return "", err
		}
		return "", errReadTimeout
	}
}
