// Package sink persists tidy records outside the process.
package sink

import (
	"context"

	"github.com/KaramelBytes/minedash/internal/tidy"
)

// RecordWriter is the interface any storage backend must satisfy.
type RecordWriter interface {
	Write(ctx context.Context, dataset string, records []tidy.Record) error
	Close() error
}

type recordKey struct {
	entity, category string
	year             int
}

// collapse merges records sharing (entity, category, year), summing present
// values. The result keeps first-seen order.
func collapse(records []tidy.Record) []tidy.Record {
	pos := make(map[recordKey]int, len(records))
	out := make([]tidy.Record, 0, len(records))
	for _, r := range records {
		k := recordKey{r.Entity, r.Category, r.Year}
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, r)
			continue
		}
		if r.Missing {
			continue
		}
		if out[i].Missing {
			out[i].Value, out[i].Missing = r.Value, false
			continue
		}
		out[i].Value += r.Value
	}
	return out
}
