package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"field-monitor/internal/model"
)

// CSVStore keeps one CSV file per run. Every append reopens the file in append
// mode, so rows written before a crash survive and a file removed mid-run is
// reported instead of silently recreated.
type CSVStore struct {
	path    string
	schema  model.Schema
	columns int
	created bool
}

func NewCSVStore(dir, experiment string) (*CSVStore, error) {
	path, err := filePath(dir, experiment, ".csv")
	if err != nil {
		return nil, err
	}
	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Create(schema model.Schema) error {
	header := schema.Header()
	raw, err := encodeRecord(header)
	if err != nil {
		return fmt.Errorf("%w: encode header: %w", ErrUnwritable, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrUnwritable, s.path, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write header: %w", ErrUnwritable, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrUnwritable, s.path, err)
	}
	s.schema = schema
	s.columns = len(header)
	s.created = true
	return nil
}

func (s *CSVStore) Append(sample model.Sample) error {
	if !s.created {
		return fmt.Errorf("%w: %s was not created", ErrUnwritable, s.path)
	}
	values := sample.Values(s.schema)
	if len(values) != s.columns {
		return fmt.Errorf("%w: row has %d values, header has %d", ErrUnwritable, len(values), s.columns)
	}
	record := make([]string, len(values))
	for i, v := range values {
		cell, err := formatValue(v)
		if err != nil {
			return fmt.Errorf("%w: column %d: %w", ErrUnwritable, i, err)
		}
		record[i] = cell
	}
	raw, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("%w: encode row: %w", ErrUnwritable, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrUnwritable, s.path, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: append %s: %w", ErrUnwritable, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrUnwritable, s.path, err)
	}
	return nil
}

func (s *CSVStore) Close() error {
	return nil
}

// encodeRecord renders the whole row up front so it reaches the file in a
// single write.
func encodeRecord(record []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		return x, nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
