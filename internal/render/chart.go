// Package render draws views as charts, workbooks and GeoJSON.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/minedash/internal/aggregate"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/tidy"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Kind selects a chart type.
type Kind string

const (
	KindLine    Kind = "line"
	KindBar     Kind = "bar"
	KindBox     Kind = "box"
	KindArea    Kind = "area"
	KindHeatmap Kind = "heatmap"
	KindScatter Kind = "scatter"
)

// Format selects the image encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrUnknownChart is returned for an unsupported kind or format.
var ErrUnknownChart = errors.New("unknown chart kind or format")

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// ParseKind accepts line, bar, box, area, heatmap or scatter. Empty means
// line.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindLine, nil
	case KindLine, KindBar, KindBox, KindArea, KindHeatmap, KindScatter:
		return k, nil
	default:
		return "", fmt.Errorf("%w: kind %q (use line|bar|box|area|heatmap|scatter)", ErrUnknownChart, s)
	}
}

// ParseFormat accepts "png" or "svg". Empty means png.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPNG, nil
	case FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: format %q (use png|svg)", ErrUnknownChart, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Chart draws v as the given kind.
func Chart(w io.Writer, v *pipeline.View, kind Kind, f Format) error {
	switch kind {
	case KindLine:
		return LineChart(w, v, f)
	case KindBar:
		return BarChart(w, v, f)
	case KindBox:
		return BoxPlot(w, v, f)
	case KindArea:
		return AreaChart(w, v, f)
	case KindHeatmap:
		return Heatmap(w, v, f)
	case KindScatter:
		return Scatter(w, v, f)
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownChart, kind)
	}
}

// LineChart draws one line per (entity, category) series over years.
// Missing years are left out of a series.
func LineChart(w io.Writer, v *pipeline.View, f Format) error {
	if v.Empty() || len(tidy.Years(v.Records)) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title, "Year", unitLabel(v))
	for i, row := range tidy.Pivot(v.Records) {
		years := sortedYears(row.Values)
		if len(years) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(years))
		for j, y := range years {
			pts[j].X = float64(y)
			pts[j].Y = row.Values[y]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", row.Entity, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(seriesName(row.Key), line)
	}
	p.Legend.Top = true
	p.X.Tick.Marker = yearTicks{}
	return save(w, p, f)
}

// BarChart draws the view's top rows.
func BarChart(w io.Writer, v *pipeline.View, f Format) error {
	if len(v.Top) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title+" - top values", "", unitLabel(v))
	values := make(plotter.Values, len(v.Top))
	labels := make([]string, len(v.Top))
	for i, r := range v.Top {
		values[i] = r.Value
		labels[i] = recordLabel(r)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	return save(w, p, f)
}

// BoxPlot draws the distribution of present values per entity.
func BoxPlot(w io.Writer, v *pipeline.View, f Format) error {
	groups := map[string]plotter.Values{}
	var order []string
	for _, r := range v.Records {
		if r.Missing {
			continue
		}
		if _, ok := groups[r.Entity]; !ok {
			order = append(order, r.Entity)
		}
		groups[r.Entity] = append(groups[r.Entity], r.Value)
	}
	if len(order) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title+" - distribution", "", unitLabel(v))
	for i, name := range order {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), groups[name])
		if err != nil {
			return fmt.Errorf("box %s: %w", name, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(order...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	return save(w, p, f)
}

// AreaChart stacks one filled band per (entity, category) series over the
// union of years. Missing years contribute zero to the stack.
func AreaChart(w io.Writer, v *pipeline.View, f Format) error {
	years := tidy.Years(v.Records)
	if v.Empty() || len(years) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title, "Year", unitLabel(v))
	base := make([]float64, len(years))
	for i, row := range tidy.Pivot(v.Records) {
		if len(row.Values) == 0 {
			continue
		}
		top := make([]float64, len(years))
		band := make(plotter.XYs, 0, 2*len(years))
		for j, y := range years {
			top[j] = base[j] + row.Values[y]
			band = append(band, plotter.XY{X: float64(y), Y: top[j]})
		}
		for j := len(years) - 1; j >= 0; j-- {
			band = append(band, plotter.XY{X: float64(years[j]), Y: base[j]})
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("area %s: %w", row.Entity, err)
		}
		poly.Color = plotutil.Color(i)
		poly.LineStyle.Width = vg.Length(0)
		p.Add(poly)
		p.Legend.Add(seriesName(row.Key), poly)
		base = top
	}
	p.Legend.Top = true
	p.X.Tick.Marker = yearTicks{}
	return save(w, p, f)
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Column c and row r
// are both series indexes.
type corrGrid struct{ m *aggregate.CorrMatrix }

func (g corrGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	z, _ := g.m.At(g.m.Columns[c], g.m.Columns[r])
	return z
}

var nanColor = color.Gray{Y: 200}

// Heatmap draws the view's correlation matrix on a fixed -1..1 scale.
// Undefined coefficients are drawn grey.
func Heatmap(w io.Writer, v *pipeline.View, f Format) error {
	if v.Corr == nil || len(v.Corr.Columns) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title+" - correlation", "", "")
	hm := plotter.NewHeatMap(corrGrid{m: v.Corr}, palette.Heat(20, 1))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanColor
	p.Add(hm)
	p.NominalX(v.Corr.Columns...)
	p.NominalY(v.Corr.Columns...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	return save(w, p, f)
}

// Scatter plots each record's value against its first extra metric, labelled
// by entity. Records without that metric are left out.
func Scatter(w io.Writer, v *pipeline.View, f Format) error {
	names := metricNames(v.Records)
	if len(names) == 0 {
		return emptyChart(w, v, f)
	}
	metric := names[0]
	var pts plotter.XYs
	var labels []string
	for _, r := range v.Records {
		x, ok := r.Metrics[metric]
		if r.Missing || !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: r.Value})
		labels = append(labels, r.Entity)
	}
	if len(pts) == 0 {
		return emptyChart(w, v, f)
	}
	p := newPlot(v.Title+" - "+unitLabel(v)+" vs "+metric, metric, unitLabel(v))
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Color = barColor
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)
	lb, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return fmt.Errorf("scatter labels: %w", err)
	}
	p.Add(lb)
	return save(w, p, f)
}

func metricNames(records []tidy.Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		for k := range r.Metrics {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func emptyChart(w io.Writer, v *pipeline.View, f Format) error {
	p := newPlot("no data", "", "")
	if v != nil && v.Title != "" {
		p.Title.Text = v.Title + ": no data"
	}
	return save(w, p, f)
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}

func save(w io.Writer, p *plot.Plot, f Format) error {
	if f == "" {
		f = FormatPNG
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, string(f))
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

func unitLabel(v *pipeline.View) string {
	if v.Unit != "" {
		return v.Unit
	}
	return "Value"
}

func seriesName(k tidy.Key) string {
	if k.Category == "" {
		return k.Entity
	}
	return k.Entity + " / " + k.Category
}

func recordLabel(r tidy.Record) string {
	s := seriesName(tidy.Key{Entity: r.Entity, Category: r.Category})
	if r.Year != 0 {
		s = fmt.Sprintf("%s %d", s, r.Year)
	}
	return s
}

func sortedYears(m map[int]float64) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// yearTicks labels whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(lo, hi float64) []plot.Tick {
	var ticks []plot.Tick
	step := 1
	if span := int(hi - lo); span > 12 {
		step = span/10 + 1
	}
	for y := int(math.Ceil(lo)); float64(y) <= hi; y += step {
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: fmt.Sprint(y)})
	}
	return ticks
}
