package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/geocode"
	"github.com/KaramelBytes/minedash/internal/sites"
	"github.com/KaramelBytes/minedash/internal/table"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

const exportCSV = `Country,Sub-commodity,2012,2013,2014
Australia,Ilmenite,100,200,300
China,Rutile,50,50,50
China,Ilmenite,10,,
India,Ilmenite,,,
Kenya,Rutile,5,5,5
`

const yearbookCSV = `Year,Coal,Lime,Copper
2010,44835,1000,20
2011,46611,1100,20
2012,42083,1200,20
`

const areasCSV = `COUNTRY_NAME,ISO3_CODE,AREA,N_FEATURES
Indonesia,IDN,4000,10
Chile,CHL,3000,5
`

const depositsCSV = `LOCATION,LOC_DETAIL,CRITICAL_M,DEPOSIT_TY,DEPOSIT_NA,LATITUDE,LONGITUDE
Australia,Western Australia,Titanium,Placer,Cooljarloo,-30.65,115.37
Australia,Victoria,Zirconium,Placer,WIM 150,-36.9,142.1
Mozambique,Nampula,Titanium,Placer,Moma,-16.6,39.8
Canada,Quebec,Titanium,Magmatic,Lac Tio,,
`

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func exportDesc(t *testing.T) dataset.Descriptor {
	return dataset.Descriptor{
		Name: "titanium-export", Title: "Titanium Export Statistics",
		Path: writeFixture(t, "export.csv", exportCSV), Layout: dataset.LayoutWide,
		EntityColumn: "Country", CategoryColumn: "Sub-commodity",
		YearMin: 2012, YearMax: 2014, Unit: "Metric Ton",
		Default: filter.Policy{Mode: filter.ModeTopK, K: 2},
	}
}

func TestRun_WideDefaultTopK(t *testing.T) {
	v, err := Run(exportDesc(t), filter.Selection{}, Options{TopN: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Stats.Dropped != 1 {
		t.Errorf("dropped = %d, want 1 (India)", v.Stats.Dropped)
	}
	if len(v.Records) != 9 {
		t.Fatalf("records = %d, want 9 (Australia and China)", len(v.Records))
	}
	for _, r := range v.Records {
		if r.Entity != "Australia" && r.Entity != "China" {
			t.Fatalf("unexpected entity %s in top-2 default", r.Entity)
		}
	}
	if v.Max == nil || v.Max.Value != 300 || v.Max.Rows[0].Year != 2014 {
		t.Errorf("max: %+v", v.Max)
	}
	if v.Min == nil || v.Min.Value != 10 || v.Min.Rows[0].Category != "Ilmenite" {
		t.Errorf("min: %+v", v.Min)
	}
	if len(v.Top) != 3 || v.Top[0].Value != 300 || v.Top[2].Value != 100 {
		t.Errorf("top: %+v", v.Top)
	}
	if got := strings.Join(v.Entities, ","); got != "Australia,China,Kenya" {
		t.Errorf("entity options should come from unfiltered records, got %s", got)
	}
	if len(v.Groups) != 2 || v.Groups[0].Entity != "Australia" {
		t.Errorf("groups: %+v", v.Groups)
	}
}

func TestRun_TopKBeforeCategoryAndYears(t *testing.T) {
	sel := filter.Selection{Categories: []string{"Rutile"}, YearMin: 2013, YearMax: 2014}
	v, err := Run(exportDesc(t), sel, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(v.Records) != 2 {
		t.Fatalf("records = %+v", v.Records)
	}
	for _, r := range v.Records {
		if r.Entity != "China" || r.Category != "Rutile" {
			t.Errorf("unexpected record %+v", r)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	desc := exportDesc(t)
	if _, err := Run(desc, filter.Selection{YearMin: 2015, YearMax: 2012}, Options{}); !errors.Is(err, ErrBadQuery) {
		t.Errorf("inverted range: got %v", err)
	}

	bad := desc
	bad.EntityColumn = "Nation"
	var ce *table.ColumnError
	if _, err := Run(bad, filter.Selection{}, Options{}); !errors.As(err, &ce) {
		t.Errorf("missing column: got %v", err)
	}

	gone := desc
	gone.Path = filepath.Join(t.TempDir(), "missing.csv")
	var le *table.LoadError
	if _, err := Run(gone, filter.Selection{}, Options{}); !errors.As(err, &le) {
		t.Errorf("missing file: got %v", err)
	}

	pts := desc
	pts.Layout = dataset.LayoutPoints
	if _, err := Run(pts, filter.Selection{}, Options{}); !errors.Is(err, ErrWrongLayout) {
		t.Errorf("points layout: got %v", err)
	}
}

func TestRun_EmptyViewIsNotAnError(t *testing.T) {
	pol := filter.Policy{Mode: filter.ModeExplicit}
	v, err := Run(exportDesc(t), filter.Selection{}, Options{Policy: &pol})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !v.Empty() || v.Max != nil || v.Summary != nil {
		t.Fatalf("expected empty aggregates, got %+v", v)
	}
	if len(v.Entities) == 0 {
		t.Error("widget options should still be populated")
	}
	if !strings.Contains(v.Markdown(), "No data matches") {
		t.Errorf("report should explain the empty view:\n%s", v.Markdown())
	}
}

func TestRun_NarrowMedianAndCorrelation(t *testing.T) {
	desc := dataset.Descriptor{
		Name: "vietnam-yearbook", Title: "Vietnam", Path: writeFixture(t, "vn.csv", yearbookCSV),
		Layout: dataset.LayoutNarrow, YearColumn: "Year",
		Default: filter.Policy{Mode: filter.ModeMedian, Threshold: 10000},
	}
	v, err := Run(desc, filter.Selection{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(v.Records) != 3 || v.Records[0].Entity != "Coal" {
		t.Fatalf("median default should keep only Coal: %+v", v.Records)
	}

	all := filter.Policy{Mode: filter.ModeAll}
	v, err = Run(desc, filter.Selection{}, Options{Policy: &all, Correlate: true, CorrBy: tidy.ByEntity})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Corr == nil || len(v.Corr.Columns) != 3 {
		t.Fatalf("corr: %+v", v.Corr)
	}
	if r, _ := v.Corr.At("Lime", "Copper"); !math.IsNaN(r) {
		t.Errorf("constant series should give NaN, got %v", r)
	}
	if r, _ := v.Corr.At("Coal", "Coal"); r != 1 {
		t.Errorf("diagonal = %v", r)
	}
}

func TestRun_SingleIgnoresYears(t *testing.T) {
	desc := dataset.Descriptor{
		Name: "mining-areas", Title: "Areas", Path: writeFixture(t, "areas.csv", areasCSV),
		Layout: dataset.LayoutSingle, EntityColumn: "COUNTRY_NAME", CodeColumn: "ISO3_CODE", ValueColumn: "AREA",
		Default: filter.Policy{Mode: filter.ModeAll},
	}
	v, err := Run(desc, filter.Selection{YearMin: 2012, YearMax: 2014}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(v.Records) != 2 || v.Summary == nil || v.Summary.Sum != 7000 {
		t.Fatalf("view: %+v", v)
	}
	if v.Max.Rows[0].Code != "IDN" {
		t.Errorf("max row: %+v", v.Max.Rows)
	}
}

type flakyLookuper struct{ known geocode.Static }

func (f flakyLookuper) Lookup(ctx context.Context, name string) (geocode.Point, error) {
	if name == "China" {
		return geocode.Point{}, errors.New("connection reset")
	}
	return f.known.Lookup(ctx, name)
}

func TestMarkers_SkipUnresolvedEntities(t *testing.T) {
	all := filter.Policy{Mode: filter.ModeAll}
	v, err := Run(exportDesc(t), filter.Selection{}, Options{Policy: &all})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	known := geocode.NewStatic(map[string][2]float64{"Australia": {-25.3, 133.8}})
	r := geocode.NewResolver(flakyLookuper{known: known})

	got := Markers(context.Background(), v, 2013, r)
	if len(got) != 1 {
		t.Fatalf("markers = %+v, want only Australia", got)
	}
	m := got[0]
	if m.Entity != "Australia" || m.Value != 200 || m.Lat != -25.3 {
		t.Errorf("marker: %+v", m)
	}
	if got := Markers(context.Background(), v, 1999, r); len(got) != 0 {
		t.Errorf("no records in 1999, got %+v", got)
	}
}

func TestRunSites(t *testing.T) {
	desc := dataset.Descriptor{
		Name: "mining-deposits", Title: "Deposits", Path: writeFixture(t, "deposits.csv", depositsCSV),
		Layout: dataset.LayoutPoints,
		Sites: &sites.Columns{
			Name: "DEPOSIT_NA", Country: "LOCATION", Detail: "LOC_DETAIL",
			Mineral: "CRITICAL_M", DepositType: "DEPOSIT_TY", Lat: "LATITUDE", Lon: "LONGITUDE",
		},
	}
	v, err := RunSites(desc, filter.SiteSelection{Countries: []string{filter.All}, Minerals: []string{"Titanium"}})
	if err != nil {
		t.Fatalf("RunSites: %v", err)
	}
	if v.Total != 3 || v.Skipped != 1 {
		t.Errorf("total/skipped: %d/%d", v.Total, v.Skipped)
	}
	if len(v.Sites) != 2 || v.ByCountry["Mozambique"] != 1 {
		t.Fatalf("sites: %+v", v.Sites)
	}
	if strings.Join(v.Minerals, ",") != "Titanium,Zirconium" {
		t.Errorf("mineral options: %v", v.Minerals)
	}
	ms := SiteMarkers(v.Sites)
	if len(ms) != 2 || ms[0].Entity != "Cooljarloo" || ms[0].Label != "Placer, Western Australia" {
		t.Errorf("site markers: %+v", ms)
	}
	if !strings.Contains(v.Markdown(), "[BY COUNTRY]") {
		t.Errorf("site report:\n%s", v.Markdown())
	}
}

func TestMarkdown_Sections(t *testing.T) {
	v, err := Run(exportDesc(t), filter.Selection{}, Options{TopN: 2, Correlate: true, CorrBy: tidy.ByCategory})
	if err != nil {
		t.Fatal(err)
	}
	md := v.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Unit: Metric Ton",
		"default top 2 entities",
		"- Max 300: Australia / Ilmenite / 2014",
		"[TOP 2]",
		"[PER-ENTITY RANGE]",
		"[CORRELATIONS]",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}
