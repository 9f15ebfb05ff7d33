package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"field-monitor/internal/model"
)

const fileSuffix = "_global_monitoring"

type Backend string

const (
	BackendCSV    Backend = "csv"
	BackendSQLite Backend = "sqlite"
)

var (
	// ErrUnwritable means rows can no longer be recorded and the run must stop.
	ErrUnwritable = errors.New("storage unwritable")
	// ErrDatasetDir means the dataset directory is missing and cannot be created.
	ErrDatasetDir = errors.New("dataset directory unavailable")
)

// Store is an append-only, row-oriented record of one run.
type Store interface {
	// Create writes the header for schema, replacing any previous record of
	// the same experiment.
	Create(schema model.Schema) error
	// Append writes one complete row or nothing.
	Append(sample model.Sample) error
	Path() string
	Close() error
}

func New(backend Backend, dir, experiment string) (Store, error) {
	switch backend {
	case BackendCSV, "":
		return NewCSVStore(dir, experiment)
	case BackendSQLite:
		return NewSQLiteStore(dir, experiment)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}

// FileName is the per-run file name without directory.
func FileName(experiment, ext string) string {
	return experiment + fileSuffix + ext
}

func ensureDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("%w: empty path", ErrDatasetDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrDatasetDir, err)
	}
	return nil
}

func filePath(dir, experiment, ext string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(experiment, ext)), nil
}
