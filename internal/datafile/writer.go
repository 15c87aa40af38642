package datafile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MetaPrefix starts every metadata line written above the header row.
const MetaPrefix = "#"

// ErrSchemaMismatch is returned when a row's width differs from the declared schema.
var ErrSchemaMismatch = errors.New("row does not match schema")

// Meta is one key/value pair written as a "# key: value" line before the header.
type Meta struct {
	Key   string
	Value string
}

// File is an append-only CSV data file with a fixed column schema.
// Every row is flushed and synced to disk before Append returns, so a crash loses at
// most the trial in flight. File is not safe for concurrent use.
type File struct {
	path   string
	f      *os.File
	w      *csv.Writer
	schema []string
	rows   int
	closed bool
}

// Create creates a new data file at path, writes the metadata lines and the header row.
// It refuses to overwrite an existing file.
func Create(path string, schema []string, meta []Meta) (*File, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema cannot be empty")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create data file: %w", err)
	}

	df := &File{
		path:   path,
		f:      f,
		w:      csv.NewWriter(f),
		schema: append([]string(nil), schema...),
	}

	for _, m := range meta {
		if strings.ContainsAny(m.Key+m.Value, "\r\n") {
			f.Close()
			return nil, fmt.Errorf("metadata %q must be a single line", m.Key)
		}
		if _, err := fmt.Fprintf(f, "%s %s: %s\n", MetaPrefix, m.Key, m.Value); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	if err := df.flush(df.schema); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return df, nil
}

// Path returns the file's location.
func (df *File) Path() string {
	return df.path
}

// Schema returns a copy of the declared column names.
func (df *File) Schema() []string {
	return append([]string(nil), df.schema...)
}

// Rows returns the number of data rows appended so far.
func (df *File) Rows() int {
	return df.rows
}

// Append formats fields with FormatRow and writes them as one row.
func (df *File) Append(fields ...any) error {
	row, err := FormatRow(fields...)
	if err != nil {
		return err
	}
	return df.WriteRow(row)
}

// WriteRow writes one pre-formatted row and syncs it to disk.
func (df *File) WriteRow(row []string) error {
	if len(row) != len(df.schema) {
		return fmt.Errorf("%w: got %d fields, schema has %d", ErrSchemaMismatch, len(row), len(df.schema))
	}
	if err := df.flush(row); err != nil {
		return fmt.Errorf("failed to append row %d: %w", df.rows+1, err)
	}
	df.rows++
	return nil
}

func (df *File) flush(record []string) error {
	if err := df.w.Write(record); err != nil {
		return err
	}
	df.w.Flush()
	if err := df.w.Error(); err != nil {
		return err
	}
	return df.f.Sync()
}

// Close closes the underlying file. Rows already appended stay on disk.
// Closing twice is a no-op.
func (df *File) Close() error {
	if df.closed {
		return nil
	}
	df.closed = true
	return df.f.Close()
}

// FormatRow renders values as CSV cells. nil and nil pointers become empty cells,
// which is how missing responses are recorded.
func FormatRow(fields ...any) ([]string, error) {
	row := make([]string, len(fields))
	for i, v := range fields {
		cell, err := formatCell(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		row[i] = cell
	}
	return row, nil
}

func formatCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case *int64:
		if x == nil {
			return "", nil
		}
		return strconv.FormatInt(*x, 10), nil
	case *int:
		if x == nil {
			return "", nil
		}
		return strconv.Itoa(*x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("unsupported cell type %T", v)
}
