package aggregate

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/minedash/internal/tidy"
)

// CorrMatrix holds a symmetric Pearson correlation matrix. Undefined
// coefficients are NaN and encode as JSON null.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is one off-diagonal coefficient.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate pivots records to a year x series grid and computes pairwise
// Pearson r over the years both series observe. The diagonal is 1. Pairs with
// fewer than two shared years or zero variance are NaN.
func Correlate(records []tidy.Record, by tidy.Series) *CorrMatrix {
	series, _, cells := tidy.Matrix(records, by)
	n := len(series)
	m := &CorrMatrix{Columns: series, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			var xs, ys []float64
			for _, row := range cells {
				if row[i].OK && row[j].OK {
					xs = append(xs, row[i].V)
					ys = append(ys, row[j].V)
				}
			}
			r := Pearson(xs, ys)
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// Pearson computes the correlation of two equal-length samples with a
// centred two-pass sum. It returns NaN when fewer than two pairs exist or
// either sample has zero variance.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return math.NaN()
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// At returns the coefficient for two named series.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN(), false
	}
	return m.Values[ia][ib], true
}

// TopPairs returns up to k defined off-diagonal pairs ordered by |r|.
func (m *CorrMatrix) TopPairs(k int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := 0; j < i; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[j], B: m.Columns[i], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return math.Abs(pairs[i].R) > math.Abs(pairs[j].R) })
	if k >= 0 && k < len(pairs) {
		pairs = pairs[:k]
	}
	return pairs
}

type corrJSON struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// MarshalJSON encodes NaN coefficients as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	out := corrJSON{Columns: m.Columns, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			out.Values[i][j] = &v
		}
	}
	return json.Marshal(out)
}
