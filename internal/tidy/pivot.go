package tidy

// Key identifies one wide row.
type Key struct {
	Entity   string
	Category string
}

// WideRow is one re-widened row: present values keyed by year.
type WideRow struct {
	Key
	Values map[int]float64
}

// Pivot groups records back into wide rows by (entity, category) in
// first-seen order. Missing values are left out of Values; duplicate
// observations of one (entity, category, year) are summed, as in Matrix.
func Pivot(records []Record) []WideRow {
	pos := map[Key]int{}
	var out []WideRow
	for _, r := range records {
		k := Key{Entity: r.Entity, Category: r.Category}
		i, ok := pos[k]
		if !ok {
			i = len(out)
			pos[k] = i
			out = append(out, WideRow{Key: k, Values: map[int]float64{}})
		}
		if !r.Missing {
			out[i].Values[r.Year] += r.Value
		}
	}
	return out
}

// Series selects how records are grouped into columns by Matrix.
type Series int

const (
	ByEntity Series = iota
	ByCategory
)

func (s Series) String() string {
	if s == ByCategory {
		return "category"
	}
	return "entity"
}

// Matrix lays out records as a year x series grid. Cells with no
// observation hold ok=false. Duplicate (year, series) observations are
// summed, matching a pivot with a sum aggregate.
func Matrix(records []Record, by Series) (series []string, years []int, cells [][]Cell) {
	key := func(r Record) string { return r.Entity }
	if by == ByCategory {
		key = func(r Record) string { return r.Category }
	}
	years = Years(records)
	yPos := make(map[int]int, len(years))
	for i, y := range years {
		yPos[y] = i
	}
	series = distinct(records, key)
	sPos := make(map[string]int, len(series))
	for i, s := range series {
		sPos[s] = i
	}
	cells = make([][]Cell, len(years))
	for i := range cells {
		cells[i] = make([]Cell, len(series))
	}
	for _, r := range records {
		if r.Missing || r.Year == 0 {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		c := &cells[yPos[r.Year]][sPos[k]]
		c.V += r.Value
		c.OK = true
	}
	return series, years, cells
}

// Cell is one grid value.
type Cell struct {
	V  float64
	OK bool
}
