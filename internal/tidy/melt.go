package tidy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/minedash/internal/table"
)

// WideSpec describes a table with key columns and one column per year.
type WideSpec struct {
	EntityColumn   string
	CategoryColumn string // optional
	// YearMin and YearMax bound the columns checked by the drop rule.
	YearMin, YearMax int
	Number           table.NumberFormat
}

// NarrowSpec describes a table with an explicit year column and one column
// per series.
type NarrowSpec struct {
	YearColumn string
	// ValueColumns lists the series columns. Empty means every other column.
	ValueColumns []string
	Number       table.NumberFormat
}

// SingleSpec describes a table with one value per entity.
type SingleSpec struct {
	EntityColumn string
	CodeColumn   string // optional, e.g. ISO3 code
	ValueColumn  string
	// ExtraColumns are numeric columns copied into Record.Metrics.
	ExtraColumns []string
	Number       table.NumberFormat
}

type yearCol struct {
	year int
	idx  int
}

// Melt reshapes a wide table to long form. A row is dropped when every cell
// in [YearMin, YearMax] is missing; surviving rows emit one record per year
// column in header order.
func Melt(t *table.Table, spec WideSpec) ([]Record, Stats, error) {
	stats := Stats{Rows: t.Len()}
	if spec.YearMin > spec.YearMax {
		return nil, stats, fmt.Errorf("melt %s: year range %d..%d is empty", t.Name, spec.YearMin, spec.YearMax)
	}
	if spec.EntityColumn == "" {
		return nil, stats, fmt.Errorf("melt %s: entity column not set", t.Name)
	}
	if err := t.Require(spec.EntityColumn, spec.CategoryColumn); err != nil {
		return nil, stats, err
	}
	entIdx, _ := t.Index(spec.EntityColumn)
	catIdx := -1
	if spec.CategoryColumn != "" {
		catIdx, _ = t.Index(spec.CategoryColumn)
	}

	var years []yearCol
	seen := map[int]bool{}
	for i, h := range t.Header {
		if i == entIdx || i == catIdx {
			continue
		}
		if y, ok := parseYear(h); ok {
			years = append(years, yearCol{year: y, idx: i})
			seen[y] = true
		}
	}
	var missing []string
	for y := spec.YearMin; y <= spec.YearMax; y++ {
		if !seen[y] {
			missing = append(missing, strconv.Itoa(y))
		}
	}
	if len(missing) > 0 {
		return nil, stats, &table.ColumnError{Table: t.Name, Missing: missing}
	}

	out := make([]Record, 0, t.Len()*len(years))
	for _, row := range t.Rows {
		vals := make([]float64, len(years))
		present := make([]bool, len(years))
		inRange := false
		for j, yc := range years {
			vals[j], present[j] = spec.Number.Parse(row[yc.idx])
			if present[j] && yc.year >= spec.YearMin && yc.year <= spec.YearMax {
				inRange = true
			}
		}
		if !inRange {
			stats.Dropped++
			continue
		}
		entity := strings.TrimSpace(row[entIdx])
		category := ""
		if catIdx >= 0 {
			category = strings.TrimSpace(row[catIdx])
		}
		for j, yc := range years {
			out = append(out, Record{
				Entity:   entity,
				Category: category,
				Year:     yc.year,
				Value:    vals[j],
				Missing:  !present[j],
			})
		}
	}
	stats.Records = len(out)
	return out, stats, nil
}

// MeltNarrow reshapes a table with a Year column into one record per
// (series, year). The series name becomes the entity.
func MeltNarrow(t *table.Table, spec NarrowSpec) ([]Record, Stats, error) {
	stats := Stats{Rows: t.Len()}
	yearCells, err := t.Column(spec.YearColumn)
	if err != nil {
		return nil, stats, err
	}
	if err := t.Require(spec.ValueColumns...); err != nil {
		return nil, stats, err
	}
	yIdx, _ := t.Index(spec.YearColumn)
	series := spec.ValueColumns
	if len(series) == 0 {
		for i, h := range t.Header {
			if i != yIdx && h != "" {
				series = append(series, h)
			}
		}
	}
	idx := make([]int, len(series))
	for i, s := range series {
		idx[i], _ = t.Index(s)
	}

	var out []Record
	for r, row := range t.Rows {
		y, ok := parseYear(yearCells[r])
		if !ok {
			stats.Skipped++
			continue
		}
		for i, s := range series {
			v, present := spec.Number.Parse(row[idx[i]])
			out = append(out, Record{Entity: s, Year: y, Value: v, Missing: !present})
		}
	}
	stats.Records = len(out)
	return out, stats, nil
}

// Single reads one value per entity. Rows without an entity name are skipped.
// Present values of ExtraColumns are attached as Metrics.
func Single(t *table.Table, spec SingleSpec) ([]Record, Stats, error) {
	stats := Stats{Rows: t.Len()}
	if err := t.Require(append([]string{spec.EntityColumn, spec.CodeColumn, spec.ValueColumn}, spec.ExtraColumns...)...); err != nil {
		return nil, stats, err
	}
	eIdx, _ := t.Index(spec.EntityColumn)
	vIdx, _ := t.Index(spec.ValueColumn)
	cIdx := -1
	if spec.CodeColumn != "" {
		cIdx, _ = t.Index(spec.CodeColumn)
	}
	extra := make([]int, len(spec.ExtraColumns))
	for i, c := range spec.ExtraColumns {
		extra[i], _ = t.Index(c)
	}
	var out []Record
	for _, row := range t.Rows {
		entity := strings.TrimSpace(row[eIdx])
		if entity == "" {
			stats.Skipped++
			continue
		}
		v, present := spec.Number.Parse(row[vIdx])
		rec := Record{Entity: entity, Value: v, Missing: !present}
		if cIdx >= 0 {
			rec.Code = strings.TrimSpace(row[cIdx])
		}
		for i, c := range spec.ExtraColumns {
			m, ok := spec.Number.Parse(row[extra[i]])
			if !ok {
				continue
			}
			if rec.Metrics == nil {
				rec.Metrics = make(map[string]float64, len(spec.ExtraColumns))
			}
			rec.Metrics[strings.TrimSpace(c)] = m
		}
		out = append(out, rec)
	}
	stats.Records = len(out)
	return out, stats, nil
}

// parseYear accepts four-digit years, tolerating "2012.0" as written by
// spreadsheet exports.
func parseYear(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".0")
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 {
		return 0, false
	}
	return y, true
}
