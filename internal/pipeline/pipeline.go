// Package pipeline runs one dataset through load, normalize, filter and
// aggregate, producing the View that every presentation surface renders.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/minedash/internal/aggregate"
	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/table"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

// DefaultTopN is the length of the top-rows table.
const DefaultTopN = 10

// ErrBadQuery marks an invalid selection or option.
var ErrBadQuery = errors.New("bad query")

// ErrWrongLayout is returned when a points dataset is run as a table, or the
// reverse.
var ErrWrongLayout = errors.New("wrong dataset layout")

// Options tunes a run.
type Options struct {
	TopN      int
	Correlate bool
	CorrBy    tidy.Series
	// Policy overrides the descriptor's default when non-nil.
	Policy *filter.Policy
}

// View is the filtered and aggregated state of one dataset.
type View struct {
	Dataset string           `json:"dataset"`
	Title   string           `json:"title"`
	Layout  dataset.Layout   `json:"layout"`
	Unit    string           `json:"unit,omitempty"`
	Sel     filter.Selection `json:"selection"`
	Policy  filter.Policy    `json:"policy"`
	Stats   tidy.Stats       `json:"stats"`

	Records []tidy.Record          `json:"records"`
	Max     *aggregate.Extreme     `json:"max,omitempty"`
	Min     *aggregate.Extreme     `json:"min,omitempty"`
	Groups  []aggregate.GroupRange `json:"groups"`
	Top     []tidy.Record          `json:"top"`
	Summary *aggregate.Summary     `json:"summary,omitempty"`
	Corr    *aggregate.CorrMatrix  `json:"correlation,omitempty"`

	// Widget options, taken from the unfiltered records.
	Entities   []string `json:"entities"`
	Categories []string `json:"categories,omitempty"`
	Years      []int    `json:"years,omitempty"`
}

// Empty reports whether nothing matched the selection.
func (v *View) Empty() bool { return len(v.Records) == 0 }

// Normalize loads the descriptor's table and reshapes it to long form.
func Normalize(desc dataset.Descriptor) ([]tidy.Record, tidy.Stats, error) {
	t, err := table.Load(desc.Path, table.Options{})
	if err != nil {
		return nil, tidy.Stats{}, err
	}
	switch desc.Layout {
	case dataset.LayoutWide:
		return tidy.Melt(t, desc.WideSpec())
	case dataset.LayoutNarrow:
		return tidy.MeltNarrow(t, desc.NarrowSpec())
	case dataset.LayoutSingle:
		return tidy.Single(t, desc.SingleSpec())
	default:
		return nil, tidy.Stats{}, fmt.Errorf("%w: %s is %s", ErrWrongLayout, desc.Name, desc.Layout)
	}
}

// Run computes the View for desc under sel. Load and column errors are
// returned as-is; an empty result is not an error.
func Run(desc dataset.Descriptor, sel filter.Selection, opt Options) (*View, error) {
	if err := sel.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	if desc.Layout == dataset.LayoutSingle {
		sel.YearMin, sel.YearMax = 0, 0
	}
	pol := desc.Policy()
	if opt.Policy != nil {
		pol = *opt.Policy
	}
	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}

	records, stats, err := Normalize(desc)
	if err != nil {
		return nil, err
	}
	v := &View{
		Dataset:    desc.Name,
		Title:      desc.Title,
		Layout:     desc.Layout,
		Unit:       desc.Unit,
		Sel:        sel,
		Policy:     pol,
		Stats:      stats,
		Entities:   tidy.Entities(records),
		Categories: tidy.Categories(records),
		Years:      tidy.Years(records),
	}
	if v.Entities == nil {
		v.Entities = []string{}
	}
	filtered := filter.Apply(records, sel, pol)
	aggregateInto(v, filtered, opt)
	return v, nil
}

func aggregateInto(v *View, records []tidy.Record, opt Options) {
	v.Records = records
	if mx, ok := aggregate.Max(records); ok {
		v.Max = &mx
	}
	if mn, ok := aggregate.Min(records); ok {
		v.Min = &mn
	}
	v.Groups = aggregate.GroupExtrema(records)
	if v.Groups == nil {
		v.Groups = []aggregate.GroupRange{}
	}
	aggregate.SortGroups(v.Groups, aggregate.ByMax, true)
	v.Top = aggregate.TopN(records, opt.TopN)
	if v.Top == nil {
		v.Top = []tidy.Record{}
	}
	if s, ok := aggregate.Summarize(records); ok {
		v.Summary = &s
	}
	if opt.Correlate {
		v.Corr = aggregate.Correlate(records, opt.CorrBy)
	}
}
