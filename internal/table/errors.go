package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty indicates a file without a header row.
	ErrEmpty = errors.New("no header row")
	// ErrEncoding indicates content that is not valid UTF-8.
	ErrEncoding = errors.New("invalid UTF-8 encoding")
	// ErrDuplicateColumn indicates two header cells with the same trimmed name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrRagged indicates a row with more non-empty fields than the header.
	ErrRagged = errors.New("ragged row")
)

// LoadError reports a dataset that could not be read or parsed as a table.
// It is fatal for the request that triggered the load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "load error"
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ColumnError reports columns a dataset declares but the file lacks.
type ColumnError struct {
	Table   string
	Missing []string
}

func (e *ColumnError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("%s: missing column %q", e.Table, e.Missing[0])
	}
	return fmt.Sprintf("%s: missing columns %s", e.Table, strings.Join(quoteAll(e.Missing), ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
