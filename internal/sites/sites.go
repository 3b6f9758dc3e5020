// Package sites reads point datasets such as mining deposits, where each row
// already carries its own coordinates.
package sites

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/minedash/internal/table"
)

// Site is one mining deposit or station.
type Site struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Detail      string  `json:"detail,omitempty"`
	Mineral     string  `json:"mineral,omitempty"`
	DepositType string  `json:"deposit_type,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Columns maps Site fields to table columns. Name, Detail, Mineral and
// DepositType are optional.
type Columns struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Country     string `yaml:"country" json:"country"`
	Detail      string `yaml:"detail,omitempty" json:"detail,omitempty"`
	Mineral     string `yaml:"mineral,omitempty" json:"mineral,omitempty"`
	DepositType string `yaml:"deposit_type,omitempty" json:"deposit_type,omitempty"`
	Lat         string `yaml:"lat" json:"lat"`
	Lon         string `yaml:"lon" json:"lon"`
}

// FromTable reads sites, skipping rows whose coordinates are missing or out
// of range. Coordinates accept either decimal mark. It returns the number of
// skipped rows.
func FromTable(t *table.Table, cols Columns) ([]Site, int, error) {
	if err := t.Require(cols.Name, cols.Country, cols.Detail, cols.Mineral, cols.DepositType, cols.Lat, cols.Lon); err != nil {
		return nil, 0, err
	}
	get := func(row []string, col string) string {
		if col == "" {
			return ""
		}
		i, _ := t.Index(col)
		return strings.TrimSpace(row[i])
	}
	var out []Site
	skipped := 0
	for _, row := range t.Rows {
		lat, ok1 := table.ParseNumber(get(row, cols.Lat))
		lon, ok2 := table.ParseNumber(get(row, cols.Lon))
		if !ok1 || !ok2 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			skipped++
			continue
		}
		out = append(out, Site{
			Name:        get(row, cols.Name),
			Country:     get(row, cols.Country),
			Detail:      get(row, cols.Detail),
			Mineral:     get(row, cols.Mineral),
			DepositType: get(row, cols.DepositType),
			Lat:         lat,
			Lon:         lon,
		})
	}
	return out, skipped, nil
}

// Options lists the sorted distinct non-empty values of one field, for
// populating selection widgets.
func Options(in []Site, field func(Site) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		v := field(s)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// CountBy tallies sites per value of one field.
func CountBy(in []Site, field func(Site) string) map[string]int {
	out := map[string]int{}
	for _, s := range in {
		out[field(s)]++
	}
	return out
}

// Field accessors for Options and CountBy.
func Country(s Site) string     { return s.Country }
func Mineral(s Site) string     { return s.Mineral }
func DepositType(s Site) string { return s.DepositType }
