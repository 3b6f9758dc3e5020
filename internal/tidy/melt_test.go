package tidy

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/minedash/internal/table"
)

const wideCSV = `Country,Sub-commodity,2012,2013,2014,2015
United States,Ilmenite,100,120,,90
China,Ilmenite,,,,
China,Rutile,5,,7,
Australia,Rutile,"1,200",1300,1250,1400
`

func mustTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tb, err := table.ReadDelimited(strings.NewReader(csv), "fixture.csv", table.Options{})
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return tb
}

var wideSpec = WideSpec{EntityColumn: "Country", CategoryColumn: "Sub-commodity", YearMin: 2012, YearMax: 2015}

func TestMelt_DropsRowsMissingEveryYear(t *testing.T) {
	tb := mustTable(t, wideCSV)
	recs, stats, err := Melt(tb, wideSpec)
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if stats.Dropped != 1 {
		t.Fatalf("dropped=%d want 1", stats.Dropped)
	}
	if len(recs) != 3*4 {
		t.Fatalf("records=%d want 12", len(recs))
	}
	for _, r := range recs {
		if r.Entity == "China" && r.Category == "Ilmenite" {
			t.Fatalf("all-missing row survived: %+v", r)
		}
	}
	// A row with a single present value is kept.
	kept := 0
	for _, r := range recs {
		if r.Entity == "China" && r.Category == "Rutile" {
			kept++
		}
	}
	if kept != 4 {
		t.Fatalf("partially present row should emit 4 records, got %d", kept)
	}
}

func TestMelt_PivotRoundTrip(t *testing.T) {
	tb := mustTable(t, wideCSV)
	recs, _, err := Melt(tb, wideSpec)
	if err != nil {
		t.Fatal(err)
	}
	rows := Pivot(recs)
	byKey := map[Key]map[int]float64{}
	for _, r := range rows {
		byKey[r.Key] = r.Values
	}
	// Every non-dropped source cell must come back exactly.
	years := []string{"2012", "2013", "2014", "2015"}
	for _, src := range tb.Rows {
		k := Key{Entity: src[0], Category: src[1]}
		got, ok := byKey[k]
		allMissing := true
		for j := range years {
			if _, present := table.ParseNumber(src[2+j]); present {
				allMissing = false
			}
		}
		if allMissing {
			if ok {
				t.Fatalf("dropped row %v reappeared", k)
			}
			continue
		}
		if !ok {
			t.Fatalf("row %v lost", k)
		}
		for j, y := range years {
			want, present := table.ParseNumber(src[2+j])
			v, has := got[2012+j]
			if present != has || (present && v != want) {
				t.Fatalf("%v %s: got (%v,%v) want (%v,%v)", k, y, v, has, want, present)
			}
		}
	}
	if byKey[Key{"Australia", "Rutile"}][2012] != 1200 {
		t.Fatalf("thousands separator not parsed")
	}
}

func TestMelt_MissingYearColumn(t *testing.T) {
	tb := mustTable(t, "Country,Sub-commodity,2012\nUS,Ilmenite,1\n")
	_, _, err := Melt(tb, wideSpec)
	var ce *table.ColumnError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ColumnError, got %v", err)
	}
	if len(ce.Missing) != 3 {
		t.Fatalf("missing=%v", ce.Missing)
	}
}

func TestMelt_SpreadsheetYearHeaders(t *testing.T) {
	tb := mustTable(t, "Country,2012.0,2013.0\nUS,1,2\n")
	recs, _, err := Melt(tb, WideSpec{EntityColumn: "Country", YearMin: 2012, YearMax: 2013})
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if len(recs) != 2 || recs[0].Year != 2012 || recs[1].Year != 2013 || recs[1].Value != 2 {
		t.Fatalf("unexpected records %+v", recs)
	}

	_, _, err = Melt(tb, WideSpec{EntityColumn: "Country", YearMin: 2012, YearMax: 2014})
	var ce *table.ColumnError
	if !errors.As(err, &ce) || len(ce.Missing) != 1 || ce.Missing[0] != "2014" {
		t.Fatalf("expected missing 2014, got %v", err)
	}
}

func TestMelt_ExplicitNumberFormat(t *testing.T) {
	tb := mustTable(t, "Country;2012;2013\nDE;1.234;2,5\n")
	spec := WideSpec{EntityColumn: "Country", YearMin: 2012, YearMax: 2013, Number: table.NumberFormat{Decimal: ',', Thousands: '.'}}
	recs, _, err := Melt(tb, spec)
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if recs[0].Value != 1234 || recs[1].Value != 2.5 {
		t.Fatalf("got %v and %v, want 1234 and 2.5", recs[0].Value, recs[1].Value)
	}
}

func TestPivot_SumsDuplicateKeys(t *testing.T) {
	tb := mustTable(t, "Country,Sub-commodity,2012,2013\nOther,Ilmenite,1,2\nOther,Ilmenite,3,4\nOther,Rutile,,5\n")
	recs, _, err := Melt(tb, WideSpec{EntityColumn: "Country", CategoryColumn: "Sub-commodity", YearMin: 2012, YearMax: 2013})
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	rows := Pivot(recs)
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2: %+v", len(rows), rows)
	}
	if got := rows[0].Values; got[2012] != 4 || got[2013] != 6 {
		t.Fatalf("duplicate rows should sum to 4 and 6, got %v", got)
	}
	if _, ok := rows[1].Values[2012]; ok {
		t.Fatalf("missing value should stay absent: %v", rows[1].Values)
	}
}

func TestMelt_OutOfRangeValuesDoNotKeepRow(t *testing.T) {
	tb := mustTable(t, "Country,2012,2013,2022\nUS,,,9\n")
	recs, stats, err := Melt(tb, WideSpec{EntityColumn: "Country", YearMin: 2012, YearMax: 2013})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Dropped != 1 || len(recs) != 0 {
		t.Fatalf("row with only out-of-range values should be dropped: %+v %v", stats, recs)
	}
}

func TestMeltNarrow(t *testing.T) {
	tb := mustTable(t, "Year,\"Coal (000, tons)\",Copper ores (ton)\n2010,44835,\n2011,46611,1200\nn/a,1,2\n")
	recs, stats, err := MeltNarrow(tb, NarrowSpec{YearColumn: "Year"})
	if err != nil {
		t.Fatalf("MeltNarrow: %v", err)
	}
	if stats.Skipped != 1 {
		t.Fatalf("skipped=%d want 1", stats.Skipped)
	}
	if len(recs) != 4 {
		t.Fatalf("records=%d want 4", len(recs))
	}
	if recs[0].Entity != "Coal (000, tons)" || recs[0].Year != 2010 || recs[0].Value != 44835 {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
	if !recs[1].Missing {
		t.Fatalf("empty cell should be missing: %+v", recs[1])
	}
	if recs[0].Category != "" {
		t.Fatalf("narrow records have no category")
	}
}

func TestSingle(t *testing.T) {
	tb := mustTable(t, "COUNTRY_NAME,ISO3_CODE,AREA,N_FEATURES\nChile,CHL,1520.5,300\n,XXX,1,1\nPeru,PER,,12\n")
	recs, stats, err := Single(tb, SingleSpec{EntityColumn: "COUNTRY_NAME", CodeColumn: "ISO3_CODE", ValueColumn: "AREA"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || len(recs) != 2 {
		t.Fatalf("stats=%+v recs=%v", stats, recs)
	}
	if recs[0].Code != "CHL" || recs[0].Year != 0 || recs[0].Value != 1520.5 {
		t.Fatalf("unexpected %+v", recs[0])
	}
	if !recs[1].Missing {
		t.Fatalf("expected missing AREA for Peru")
	}
	if recs[0].Metrics != nil {
		t.Fatalf("no extra columns requested, got metrics %v", recs[0].Metrics)
	}
}

func TestSingle_ExtraColumns(t *testing.T) {
	tb := mustTable(t, "COUNTRY_NAME,ISO3_CODE,AREA,N_FEATURES\nChile,CHL,1520.5,300\nPeru,PER,12,\n")
	spec := SingleSpec{EntityColumn: "COUNTRY_NAME", CodeColumn: "ISO3_CODE", ValueColumn: "AREA", ExtraColumns: []string{"N_FEATURES"}}
	recs, _, err := Single(tb, spec)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Metrics["N_FEATURES"] != 300 {
		t.Fatalf("metrics=%v", recs[0].Metrics)
	}
	if _, ok := recs[1].Metrics["N_FEATURES"]; ok {
		t.Fatalf("blank metric should be absent: %v", recs[1].Metrics)
	}
	b, err := json.Marshal(recs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"metrics":{"N_FEATURES":300}`) {
		t.Fatalf("metrics not encoded: %s", b)
	}

	spec.ExtraColumns = []string{"N_MINES"}
	var ce *table.ColumnError
	if _, _, err := Single(tb, spec); !errors.As(err, &ce) || ce.Missing[0] != "N_MINES" {
		t.Fatalf("expected missing N_MINES, got %v", err)
	}
}

func TestRecordJSON_MissingIsNull(t *testing.T) {
	b, err := json.Marshal([]Record{{Entity: "US", Year: 2012, Missing: true}, {Entity: "CN", Category: "Rutile", Year: 2013, Value: 4}})
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"value":null`) {
		t.Fatalf("missing value should be null: %s", s)
	}
	if strings.Count(s, `"category"`) != 1 {
		t.Fatalf("empty category should be omitted: %s", s)
	}
	var back []Record
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back[0].Missing || back[1].Value != 4 {
		t.Fatalf("decode mismatch: %+v", back)
	}
}

func TestMatrix(t *testing.T) {
	recs := []Record{
		{Entity: "Coal", Year: 2011, Value: 2},
		{Entity: "Coal", Year: 2010, Value: 1},
		{Entity: "Iron", Year: 2010, Value: 5},
		{Entity: "Iron", Year: 2011, Missing: true},
	}
	series, years, cells := Matrix(recs, ByEntity)
	if len(series) != 2 || series[0] != "Coal" {
		t.Fatalf("series=%v", series)
	}
	if years[0] != 2010 || years[1] != 2011 {
		t.Fatalf("years=%v", years)
	}
	if !cells[1][0].OK || cells[1][0].V != 2 {
		t.Fatalf("cell(2011,Coal)=%+v", cells[1][0])
	}
	if cells[1][1].OK {
		t.Fatalf("missing observation should not be set")
	}
}
