package render

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/tidy"
	"github.com/xuri/excelize/v2"
)

const (
	sheetRecords = "Records"
	sheetSummary = "Summary"
	sheetTop     = "Top"
	sheetCorr    = "Correlation"
	sheetSites   = "Sites"
)

// WriteXLSX writes the view as a workbook with Records, Summary and Top
// sheets, plus Correlation when one was computed.
func WriteXLSX(w io.Writer, v *pipeline.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRecords); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	valueHeader := "Value"
	if v.Unit != "" {
		valueHeader = fmt.Sprintf("Value (%s)", v.Unit)
	}
	header := []string{"Entity", "Category", "Code", "Year", valueHeader}
	if err := writeRecords(f, sheetRecords, header, v.Records); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	summary := [][]any{
		{"Dataset", v.Title},
		{"Unit", v.Unit},
		{"Input rows", v.Stats.Rows},
		{"Dropped rows", v.Stats.Dropped},
		{"Matching records", len(v.Records)},
	}
	if v.Summary != nil {
		summary = append(summary,
			[]any{"Count", v.Summary.Count},
			[]any{"Total", v.Summary.Sum},
			[]any{"Mean", v.Summary.Mean},
			[]any{"Median", v.Summary.Median},
			[]any{"Min", v.Summary.Min},
			[]any{"Max", v.Summary.Max},
		)
	}
	for i, row := range summary {
		if err := setRow(f, sheetSummary, i+1, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetSummary, "A", "B", 22)

	if _, err := f.NewSheet(sheetTop); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeRecords(f, sheetTop, header, v.Top); err != nil {
		return err
	}

	if v.Corr != nil && len(v.Corr.Columns) > 0 {
		if _, err := f.NewSheet(sheetCorr); err != nil {
			return fmt.Errorf("new sheet: %w", err)
		}
		head := []any{""}
		for _, c := range v.Corr.Columns {
			head = append(head, c)
		}
		if err := setRow(f, sheetCorr, 1, head); err != nil {
			return err
		}
		for i, c := range v.Corr.Columns {
			row := []any{c}
			for _, r := range v.Corr.Values[i] {
				if math.IsNaN(r) {
					row = append(row, nil)
					continue
				}
				row = append(row, r)
			}
			if err := setRow(f, sheetCorr, i+2, row); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

// WriteSitesXLSX writes a site view as a single-sheet workbook.
func WriteSitesXLSX(w io.Writer, v *pipeline.SiteView) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetSites); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	head := []any{"Name", "Country", "Detail", "Mineral", "Deposit type", "Latitude", "Longitude"}
	if err := setRow(f, sheetSites, 1, head); err != nil {
		return err
	}
	for i, s := range v.Sites {
		row := []any{s.Name, s.Country, s.Detail, s.Mineral, s.DepositType, s.Lat, s.Lon}
		if err := setRow(f, sheetSites, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetSites, "A", "E", 20)
	return f.Write(w)
}

// writeRecords writes one row per record. Extra metrics get one trailing
// column each.
func writeRecords(f *excelize.File, sheet string, header []string, records []tidy.Record) error {
	metrics := metricNames(records)
	head := make([]any, 0, len(header)+len(metrics))
	for _, h := range header {
		head = append(head, h)
	}
	for _, m := range metrics {
		head = append(head, m)
	}
	if err := setRow(f, sheet, 1, head); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{r.Entity, r.Category, r.Code, nil, nil}
		if r.Year != 0 {
			row[3] = r.Year
		}
		if !r.Missing {
			row[4] = r.Value
		}
		for _, m := range metrics {
			if x, ok := r.Metrics[m]; ok {
				row = append(row, x)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 24)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, val := range values {
		if val == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
