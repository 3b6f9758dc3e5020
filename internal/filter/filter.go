// Package filter narrows long-form records by user selections. Dimensions
// combine with AND; values within one dimension combine with OR; an empty
// selection for a dimension passes everything through.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/minedash/internal/aggregate"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

// Mode decides which entities are shown when the user selected none.
type Mode string

const (
	// ModeTopK shows the K entities with the largest summed value.
	ModeTopK Mode = "topk"
	// ModeAll shows every entity.
	ModeAll Mode = "all"
	// ModeExplicit shows nothing until entities are selected.
	ModeExplicit Mode = "explicit"
	// ModeMedian shows entities whose median value exceeds a threshold.
	ModeMedian Mode = "median"
)

// DefaultK is the number of entities shown by ModeTopK when K is unset.
const DefaultK = 5

// ErrUnknownMode is returned by ParsePolicy for unrecognised modes.
var ErrUnknownMode = errors.New("unknown default mode")

// Policy is the default applied to an empty entity selection.
type Policy struct {
	Mode      Mode    `json:"mode" yaml:"mode"`
	K         int     `json:"k,omitempty" yaml:"k,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// ParsePolicy validates a mode name and fills in defaults.
func ParsePolicy(mode string, k int, threshold float64) (Policy, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case "":
		m = ModeTopK
	case ModeTopK, ModeAll, ModeExplicit, ModeMedian:
	case "none":
		m = ModeExplicit
	default:
		return Policy{}, fmt.Errorf("%w: %q (use topk|all|explicit|median)", ErrUnknownMode, mode)
	}
	if k <= 0 {
		k = DefaultK
	}
	return Policy{Mode: m, K: k, Threshold: threshold}, nil
}

// Selection is the per-request filter state.
type Selection struct {
	Entities   []string `json:"entities,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// YearMin and YearMax are inclusive bounds; 0 leaves a side open.
	YearMin int `json:"year_min,omitempty"`
	YearMax int `json:"year_max,omitempty"`
}

// Validate rejects an inverted year range.
func (s Selection) Validate() error {
	if s.YearMin != 0 && s.YearMax != 0 && s.YearMin > s.YearMax {
		return fmt.Errorf("year range %d..%d is inverted", s.YearMin, s.YearMax)
	}
	return nil
}

// Apply returns the records matching sel, in input order. With no entity
// selected the policy default is resolved against the full input, before the
// category and year predicates run.
func Apply(records []tidy.Record, sel Selection, pol Policy) []tidy.Record {
	entities := sel.Entities
	if len(entities) == 0 {
		switch pol.Mode {
		case ModeExplicit:
			return []tidy.Record{}
		case ModeAll:
		case ModeMedian:
			entities = AboveMedian(records, pol.Threshold)
			if len(entities) == 0 {
				return []tidy.Record{}
			}
		default:
			k := pol.K
			if k <= 0 {
				k = DefaultK
			}
			entities = TopK(records, k)
			if len(entities) == 0 {
				return []tidy.Record{}
			}
		}
	}
	inEntity, inCategory := In(entities), In(sel.Categories)
	out := Where(records,
		func(r tidy.Record) bool { return inEntity(r.Entity) },
		func(r tidy.Record) bool { return inCategory(r.Category) },
		YearBetween(sel.YearMin, sel.YearMax),
	)
	if out == nil {
		out = []tidy.Record{}
	}
	return out
}

// Where keeps the items that satisfy every predicate.
func Where[T any](items []T, preds ...func(T) bool) []T {
	var out []T
next:
	for _, it := range items {
		for _, p := range preds {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// In builds a membership test. An empty set accepts every value.
func In(set []string) func(string) bool {
	if len(set) == 0 {
		return func(string) bool { return true }
	}
	m := make(map[string]struct{}, len(set))
	for _, s := range set {
		m[strings.TrimSpace(s)] = struct{}{}
	}
	return func(v string) bool {
		_, ok := m[v]
		return ok
	}
}

// YearBetween is an inclusive year predicate; a zero bound is open.
func YearBetween(lo, hi int) func(tidy.Record) bool {
	return func(r tidy.Record) bool {
		if lo != 0 && r.Year < lo {
			return false
		}
		if hi != 0 && r.Year > hi {
			return false
		}
		return true
	}
}

// TopK returns the k entities with the largest sum of present values. Ties
// are ordered by entity name.
func TopK(records []tidy.Record, k int) []string {
	sums := map[string]float64{}
	var order []string
	for _, r := range records {
		if _, ok := sums[r.Entity]; !ok {
			order = append(order, r.Entity)
			sums[r.Entity] = 0
		}
		if !r.Missing {
			sums[r.Entity] += r.Value
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := sums[order[i]], sums[order[j]]
		if a != b {
			return a > b
		}
		return order[i] < order[j]
	})
	if k < len(order) {
		order = order[:k]
	}
	return order
}

// AboveMedian returns, in first-seen order, the entities whose median
// present value is strictly greater than threshold.
func AboveMedian(records []tidy.Record, threshold float64) []string {
	vals := map[string][]float64{}
	var order []string
	for _, r := range records {
		if _, ok := vals[r.Entity]; !ok {
			order = append(order, r.Entity)
			vals[r.Entity] = nil
		}
		if !r.Missing {
			vals[r.Entity] = append(vals[r.Entity], r.Value)
		}
	}
	var out []string
	for _, e := range order {
		v := vals[e]
		if len(v) == 0 {
			continue
		}
		if aggregate.Median(v) > threshold {
			out = append(out, e)
		}
	}
	return out
}
