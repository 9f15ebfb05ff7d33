package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"field-monitor/internal/model"
)

const (
	sqliteTable   = "samples"
	sqliteTimeout = 3 * time.Second
)

// SQLiteStore records a run into a single table of a per-run database file.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	schema    model.Schema
	columns   int
	insertSQL string
	created   bool
}

func NewSQLiteStore(dir, experiment string) (*SQLiteStore, error) {
	path, err := filePath(dir, experiment, ".db")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnwritable, path, err)
	}
	db.SetMaxOpenConns(1)
	return newSQLiteStore(db, path), nil
}

func newSQLiteStore(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{db: db, path: path}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Create(schema model.Schema) error {
	cols := schema.Columns()
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		kind := "INTEGER"
		if c.Kind == model.ColumnReal {
			kind = "REAL"
		}
		names[i] = quoteIdent(c.Name)
		defs[i] = names[i] + " " + kind
		marks[i] = "?"
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(sqliteTable)); err != nil {
		return fmt.Errorf("%w: drop table: %w", ErrUnwritable, err)
	}
	create := fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(sqliteTable), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrUnwritable, err)
	}

	s.insertSQL = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(sqliteTable), strings.Join(names, ", "), strings.Join(marks, ", "))
	s.schema = schema
	s.columns = len(cols)
	s.created = true
	return nil
}

func (s *SQLiteStore) Append(sample model.Sample) error {
	if !s.created {
		return fmt.Errorf("%w: table was not created", ErrUnwritable)
	}
	values := sample.Values(s.schema)
	if len(values) != s.columns {
		return fmt.Errorf("%w: row has %d values, table has %d", ErrUnwritable, len(values), s.columns)
	}
	for i, v := range values {
		// database/sql rejects uint64 values with the high bit set
		if u, ok := v.(uint64); ok {
			values[i] = int64(u)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, s.insertSQL, values...); err != nil {
		return fmt.Errorf("%w: insert: %w", ErrUnwritable, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
