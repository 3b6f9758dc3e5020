// Package dataset describes the tables the dashboard knows how to show: where
// each file lives, how it is shaped and which entities are shown by default.
package dataset

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/sites"
	"github.com/KaramelBytes/minedash/internal/table"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

// Layout names a physical table shape.
type Layout string

const (
	// LayoutWide has key columns plus one column per year.
	LayoutWide Layout = "wide"
	// LayoutNarrow has a Year column plus one column per series.
	LayoutNarrow Layout = "narrow"
	// LayoutSingle has one value per entity and no year dimension.
	LayoutSingle Layout = "single"
	// LayoutPoints has one located site per row.
	LayoutPoints Layout = "points"
)

// ErrUnknownDataset is returned when a name is not in the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

// Descriptor is the configuration of one dataset.
type Descriptor struct {
	Name   string `yaml:"name" json:"name"`
	Title  string `yaml:"title" json:"title"`
	Path   string `yaml:"path" json:"path"`
	Layout Layout `yaml:"layout" json:"layout"`

	EntityColumn   string   `yaml:"entity_column,omitempty" json:"entity_column,omitempty"`
	CategoryColumn string   `yaml:"category_column,omitempty" json:"category_column,omitempty"`
	CodeColumn     string   `yaml:"code_column,omitempty" json:"code_column,omitempty"`
	ValueColumn    string   `yaml:"value_column,omitempty" json:"value_column,omitempty"`
	YearColumn     string   `yaml:"year_column,omitempty" json:"year_column,omitempty"`
	ValueColumns   []string `yaml:"value_columns,omitempty" json:"value_columns,omitempty"`
	YearMin        int      `yaml:"year_min,omitempty" json:"year_min,omitempty"`
	YearMax        int      `yaml:"year_max,omitempty" json:"year_max,omitempty"`
	ExtraColumns   []string `yaml:"extra_columns,omitempty" json:"extra_columns,omitempty"`

	// Decimal and Thousands fix the numeric separators ("." or ","). Empty
	// means auto-detect per cell.
	Decimal   string `yaml:"decimal,omitempty" json:"decimal,omitempty"`
	Thousands string `yaml:"thousands,omitempty" json:"thousands,omitempty"`

	Unit    string         `yaml:"unit,omitempty" json:"unit,omitempty"`
	Default filter.Policy  `yaml:"default" json:"default"`
	Sites   *sites.Columns `yaml:"sites,omitempty" json:"sites,omitempty"`
}

// NumberFormat returns the configured separators. Invalid settings are
// rejected by Validate and read as auto-detect here.
func (d Descriptor) NumberFormat() table.NumberFormat {
	nf, _ := table.ParseNumberFormat(d.Decimal, d.Thousands)
	return nf
}

// WideSpec returns the normalizer settings for LayoutWide.
func (d Descriptor) WideSpec() tidy.WideSpec {
	return tidy.WideSpec{EntityColumn: d.EntityColumn, CategoryColumn: d.CategoryColumn, YearMin: d.YearMin, YearMax: d.YearMax, Number: d.NumberFormat()}
}

// NarrowSpec returns the normalizer settings for LayoutNarrow.
func (d Descriptor) NarrowSpec() tidy.NarrowSpec {
	return tidy.NarrowSpec{YearColumn: d.YearColumn, ValueColumns: d.ValueColumns, Number: d.NumberFormat()}
}

// SingleSpec returns the normalizer settings for LayoutSingle.
func (d Descriptor) SingleSpec() tidy.SingleSpec {
	return tidy.SingleSpec{
		EntityColumn: d.EntityColumn,
		CodeColumn:   d.CodeColumn,
		ValueColumn:  d.ValueColumn,
		ExtraColumns: d.ExtraColumns,
		Number:       d.NumberFormat(),
	}
}

// Policy returns the default policy with K filled in.
func (d Descriptor) Policy() filter.Policy {
	p := d.Default
	if p.Mode == "" {
		p.Mode = filter.ModeAll
	}
	if p.Mode == filter.ModeTopK && p.K <= 0 {
		p.K = filter.DefaultK
	}
	return p
}

// Validate checks the fields each layout needs.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("dataset name is required")
	}
	if d.Path == "" {
		return fmt.Errorf("dataset %s: path is required", d.Name)
	}
	switch d.Layout {
	case LayoutWide:
		if d.EntityColumn == "" {
			return fmt.Errorf("dataset %s: entity_column is required for wide layout", d.Name)
		}
		if d.YearMin <= 0 || d.YearMax <= 0 || d.YearMin > d.YearMax {
			return fmt.Errorf("dataset %s: invalid year range %d..%d", d.Name, d.YearMin, d.YearMax)
		}
	case LayoutNarrow:
		if d.YearColumn == "" {
			return fmt.Errorf("dataset %s: year_column is required for narrow layout", d.Name)
		}
	case LayoutSingle:
		if d.EntityColumn == "" || d.ValueColumn == "" {
			return fmt.Errorf("dataset %s: entity_column and value_column are required for single layout", d.Name)
		}
	case LayoutPoints:
		if d.Sites == nil || d.Sites.Country == "" || d.Sites.Lat == "" || d.Sites.Lon == "" {
			return fmt.Errorf("dataset %s: sites country, lat and lon columns are required for points layout", d.Name)
		}
	default:
		return fmt.Errorf("dataset %s: unknown layout %q", d.Name, d.Layout)
	}
	if len(d.ExtraColumns) > 0 && d.Layout != LayoutSingle {
		return fmt.Errorf("dataset %s: extra_columns only apply to single layout", d.Name)
	}
	if _, err := table.ParseNumberFormat(d.Decimal, d.Thousands); err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	if d.Default.Mode != "" {
		if _, err := filter.ParsePolicy(string(d.Default.Mode), d.Default.K, d.Default.Threshold); err != nil {
			return fmt.Errorf("dataset %s: %w", d.Name, err)
		}
	}
	return nil
}

// Slug builds a dataset name such as "rare-earth-export".
func Slug(parts ...string) string {
	var b strings.Builder
	dash := false
	for _, p := range parts {
		for _, r := range strings.ToLower(p) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if dash && b.Len() > 0 {
					b.WriteByte('-')
				}
				dash = false
				b.WriteRune(r)
				continue
			}
			dash = true
		}
		dash = true
	}
	return b.String()
}
