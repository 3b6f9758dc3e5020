// Package aggregate computes summary views over filtered records. Missing
// values are ignored everywhere; empty input yields ok=false, never a panic.
package aggregate

import (
	"math"
	"sort"

	"github.com/KaramelBytes/minedash/internal/tidy"
)

// Extreme is the maximum or minimum value and every record that attains it.
type Extreme struct {
	Value float64       `json:"value"`
	Rows  []tidy.Record `json:"rows"`
}

// Max returns the largest present value with all tied records, in input
// order.
func Max(records []tidy.Record) (Extreme, bool) {
	return extreme(records, func(a, b float64) bool { return a > b })
}

// Min returns the smallest present value with all tied records.
func Min(records []tidy.Record) (Extreme, bool) {
	return extreme(records, func(a, b float64) bool { return a < b })
}

func extreme(records []tidy.Record, better func(a, b float64) bool) (Extreme, bool) {
	var ex Extreme
	found := false
	for _, r := range records {
		if r.Missing {
			continue
		}
		switch {
		case !found || better(r.Value, ex.Value):
			ex = Extreme{Value: r.Value, Rows: []tidy.Record{r}}
			found = true
		case r.Value == ex.Value:
			ex.Rows = append(ex.Rows, r)
		}
	}
	return ex, found
}

// GroupRange holds per-entity extrema.
type GroupRange struct {
	Entity string  `json:"entity"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Count  int     `json:"count"`
}

// GroupExtrema computes max and min per entity in first-seen order. Entities
// with no present values are left out.
func GroupExtrema(records []tidy.Record) []GroupRange {
	pos := map[string]int{}
	var out []GroupRange
	for _, r := range records {
		if r.Missing {
			continue
		}
		i, ok := pos[r.Entity]
		if !ok {
			pos[r.Entity] = len(out)
			out = append(out, GroupRange{Entity: r.Entity, Max: r.Value, Min: r.Value, Count: 1})
			continue
		}
		g := &out[i]
		g.Count++
		if r.Value > g.Max {
			g.Max = r.Value
		}
		if r.Value < g.Min {
			g.Min = r.Value
		}
	}
	return out
}

// Bound selects the GroupRange field used for sorting.
type Bound int

const (
	ByMax Bound = iota
	ByMin
)

// SortGroups orders groups in place by the chosen bound. Ties keep entity
// name order.
func SortGroups(groups []GroupRange, by Bound, descending bool) {
	key := func(g GroupRange) float64 {
		if by == ByMin {
			return g.Min
		}
		return g.Max
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := key(groups[i]), key(groups[j])
		if a == b {
			return groups[i].Entity < groups[j].Entity
		}
		if descending {
			return a > b
		}
		return a < b
	})
}

// TopN returns the n records with the largest present values. Records with
// equal values keep input order.
func TopN(records []tidy.Record, n int) []tidy.Record {
	var present []tidy.Record
	for _, r := range records {
		if !r.Missing {
			present = append(present, r)
		}
	}
	sort.SliceStable(present, func(i, j int) bool { return present[i].Value > present[j].Value })
	if n >= 0 && n < len(present) {
		present = present[:n]
	}
	return present
}

// Summary holds simple descriptive statistics.
type Summary struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize describes the present values of records.
func Summarize(records []tidy.Record) (Summary, bool) {
	vals := make([]float64, 0, len(records))
	for _, r := range records {
		if !r.Missing {
			vals = append(vals, r.Value)
		}
	}
	if len(vals) == 0 {
		return Summary{}, false
	}
	s := Summary{Count: len(vals), Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range vals {
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = s.Sum / float64(len(vals))
	s.Median = Median(vals)
	return s, true
}

// Median returns the middle value of vals, or 0 for an empty slice.
func Median(vals []float64) float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return Quantile(cp, 0.5)
}

// Quantile interpolates linearly between the closest ranks of sorted.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
