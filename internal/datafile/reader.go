package datafile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a data file read back into memory.
type Table struct {
	Meta    map[string]string
	Columns []string
	Rows    [][]string
}

// Open reads the data file at path.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses metadata lines, the header row and every data row.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	table := &Table{Meta: map[string]string{}}

	// Metadata lines come first; stop at the first line that is not one.
	for {
		peek, err := br.Peek(len(MetaPrefix))
		if err != nil || string(peek) != MetaPrefix {
			break
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read metadata: %w", err)
		}
		key, value, found := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, MetaPrefix)), ":")
		if found {
			table.Meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		if err == io.EOF {
			break
		}
	}

	cr := csv.NewReader(br)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("data file has no header row")
	}

	table.Columns = records[0]
	table.Rows = records[1:]
	return table, nil
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.Column(n) < 0 {
			return false
		}
	}
	return true
}
