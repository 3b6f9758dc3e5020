package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/KaramelBytes/minedash/internal/tidy"
)

// CSVWriter writes tidy records to a long-form CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the file at path and writes the header
// row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"dataset", "entity", "category", "code", "year", "value"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends the dataset's records. Missing values are written empty.
func (c *CSVWriter) Write(_ context.Context, dataset string, records []tidy.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range collapse(records) {
		year, value := "", ""
		if r.Year != 0 {
			year = strconv.Itoa(r.Year)
		}
		if !r.Missing {
			value = strconv.FormatFloat(r.Value, 'f', -1, 64)
		}
		if err := c.writer.Write([]string{dataset, r.Entity, r.Category, r.Code, year, value}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
