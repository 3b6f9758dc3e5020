// Package tidy reshapes raw tables into long-form records: one row per
// (entity, category, year) observation.
package tidy

import (
	"encoding/json"
	"sort"
)

// Record is one observation in long form. Category is empty when the source
// has no category column; Year is 0 when it has no year dimension. Metrics
// carries the extra per-entity columns of single-value tables.
type Record struct {
	Entity   string
	Category string
	Code     string
	Year     int
	Value    float64
	Missing  bool
	Metrics  map[string]float64
}

type recordJSON struct {
	Entity   string             `json:"entity"`
	Category string             `json:"category,omitempty"`
	Code     string             `json:"code,omitempty"`
	Year     int                `json:"year,omitempty"`
	Value    *float64           `json:"value"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// MarshalJSON renders a missing value as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{Entity: r.Entity, Category: r.Category, Code: r.Code, Year: r.Year, Metrics: r.Metrics}
	if !r.Missing {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (r *Record) UnmarshalJSON(b []byte) error {
	var in recordJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Record{Entity: in.Entity, Category: in.Category, Code: in.Code, Year: in.Year, Missing: in.Value == nil, Metrics: in.Metrics}
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}

// Present reports whether the record carries a value.
func (r Record) Present() bool { return !r.Missing }

// Stats describes what normalization did to the input.
type Stats struct {
	Rows    int // input rows
	Dropped int // rows removed because every in-range value was missing
	Skipped int // rows ignored because a key cell could not be parsed
	Records int // records emitted
}

// Years returns the distinct years present in records, ascending.
func Years(records []Record) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, r := range records {
		if r.Year == 0 {
			continue
		}
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	}
	sort.Ints(out)
	return out
}

// Entities returns the distinct entities in first-seen order.
func Entities(records []Record) []string {
	return distinct(records, func(r Record) string { return r.Entity })
}

// Categories returns the distinct non-empty categories in first-seen order.
func Categories(records []Record) []string {
	return distinct(records, func(r Record) string { return r.Category })
}

func distinct(records []Record, key func(Record) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
