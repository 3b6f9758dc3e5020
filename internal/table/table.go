package table

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how a tabular file is read.
type Options struct {
	// Delimiter for delimited text. If 0, sniffed from the header line.
	Delimiter rune
	// Sheet selects an XLSX sheet by name. Empty means SheetIndex.
	Sheet string
	// SheetIndex is a 1-based XLSX sheet index used when Sheet is empty.
	SheetIndex int
}

// Table is a header plus raw string rows. Header cells are trimmed; row
// values are kept as read.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// Reader reads one tabular file format.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) (*Table, error)
}

var registry []Reader

// Register adds a reader to the format registry. Readers are consulted in
// registration order.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(xlsxReader{})
	Register(delimitedReader{})
}

// Load reads path with the first registered reader that accepts it. Files no
// reader claims are read as delimited text. Every failure is a *LoadError.
func Load(path string, opt Options) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("file not found: %w", err)}
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: errors.New("path is a directory")}
	}
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return delimitedReader{}.Read(path, opt)
}

// newTable builds a Table from raw records whose first record is the header.
func newTable(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	// Trailing blank header cells come from exporters padding rows.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	t := &Table{Name: name, Header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		if _, dup := t.index[h]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, h)
		}
		t.index[h] = i
	}
	ncol := len(header)
	for n, rec := range records[1:] {
		if len(rec) > ncol {
			for _, extra := range rec[ncol:] {
				if strings.TrimSpace(extra) != "" {
					return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrRagged, n+1, len(rec), ncol)
				}
			}
			rec = rec[:ncol]
		}
		row := make([]string, ncol)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column by its trimmed name.
func (t *Table) Index(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			t.index[h] = i
		}
	}
	i, ok := t.index[strings.TrimSpace(name)]
	return i, ok
}

// Require reports every named column missing from the header.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if c == "" {
			continue
		}
		if _, ok := t.Index(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ColumnError{Table: t.Name, Missing: missing}
	}
	return nil
}

// Column returns all values of a column in row order.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.Index(name)
	if !ok {
		return nil, &ColumnError{Table: t.Name, Missing: []string{name}}
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Head returns at most n rows from the top of the table.
func (t *Table) Head(n int) [][]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

func baseName(path string) string {
	return filepath.Base(path)
}
