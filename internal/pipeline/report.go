package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/tidy"
	"github.com/KaramelBytes/minedash/internal/utils"
)

// Markdown renders a compact text report of the view.
func (v *View) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Dataset: %s (%s)\n", v.Title, v.Dataset))
	if v.Unit != "" {
		b.WriteString(fmt.Sprintf("Unit: %s\n", v.Unit))
	}
	b.WriteString(fmt.Sprintf("Rows: %s input, %s dropped, %s skipped, %s records\n",
		utils.FormatInt(v.Stats.Rows), utils.FormatInt(v.Stats.Dropped), utils.FormatInt(v.Stats.Skipped), utils.FormatInt(v.Stats.Records)))
	if len(v.Years) > 0 {
		b.WriteString(fmt.Sprintf("Years: %d-%d\n", v.Years[0], v.Years[len(v.Years)-1]))
	}
	b.WriteString(fmt.Sprintf("Selection: %s\n", describeSelection(v.Sel, v.Policy)))
	b.WriteString(fmt.Sprintf("Matching records: %s\n", utils.FormatInt(len(v.Records))))

	if v.Empty() {
		b.WriteString("\n[NOTES]\n- No data matches the current selection.\n")
		return b.String()
	}

	b.WriteString("\n[EXTREMES]\n")
	if v.Max != nil {
		b.WriteString(fmt.Sprintf("- Max %s: %s\n", utils.FormatNumber(v.Max.Value), describeRows(v.Max.Rows)))
	}
	if v.Min != nil {
		b.WriteString(fmt.Sprintf("- Min %s: %s\n", utils.FormatNumber(v.Min.Value), describeRows(v.Min.Rows)))
	}

	if v.Summary != nil {
		s := v.Summary
		b.WriteString("\n[SUMMARY]\n")
		b.WriteString(fmt.Sprintf("- count %s, total %s, mean %s, median %s\n",
			utils.FormatInt(s.Count), utils.FormatNumber(s.Sum), utils.FormatNumber(s.Mean), utils.FormatNumber(s.Median)))
	}

	if len(v.Groups) > 1 {
		b.WriteString("\n[PER-ENTITY RANGE]\n")
		for _, g := range v.Groups {
			b.WriteString(fmt.Sprintf("- %s: max %s, min %s (%d values)\n", g.Entity, utils.FormatNumber(g.Max), utils.FormatNumber(g.Min), g.Count))
		}
	}

	if len(v.Top) > 0 {
		b.WriteString(fmt.Sprintf("\n[TOP %d]\n", len(v.Top)))
		for i, r := range v.Top {
			b.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, describe(r), utils.FormatNumber(r.Value)))
		}
	}

	if v.Corr != nil && len(v.Corr.Columns) > 1 {
		b.WriteString("\n[CORRELATIONS]\n")
		pairs := v.Corr.TopPairs(5)
		if len(pairs) == 0 {
			b.WriteString("- none defined (need two shared years with variation)\n")
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	return b.String()
}

// Markdown renders a compact text report of the site view.
func (v *SiteView) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Dataset: %s (%s)\n", v.Title, v.Dataset))
	b.WriteString(fmt.Sprintf("Sites: %s shown of %s (%s without coordinates)\n",
		utils.FormatInt(len(v.Sites)), utils.FormatInt(v.Total), utils.FormatInt(v.Skipped)))
	if len(v.Sites) == 0 {
		b.WriteString("\n[NOTES]\n- No sites match the current selection.\n")
		return b.String()
	}
	writeCounts(&b, "BY COUNTRY", v.ByCountry)
	writeCounts(&b, "BY DEPOSIT TYPE", v.ByType)
	writeCounts(&b, "BY MINERAL", v.ByMineral)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	type kv struct {
		k string
		n int
	}
	var rows []kv
	for k, n := range counts {
		if k == "" {
			k = "(unknown)"
		}
		rows = append(rows, kv{k, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].n == rows[j].n {
			return rows[i].k < rows[j].k
		}
		return rows[i].n > rows[j].n
	})
	b.WriteString(fmt.Sprintf("\n[%s]\n", title))
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("- %s: %d\n", r.k, r.n))
	}
}

func describeSelection(sel filter.Selection, pol filter.Policy) string {
	var parts []string
	if len(sel.Entities) > 0 {
		parts = append(parts, "entities="+strings.Join(sel.Entities, ", "))
	} else {
		switch pol.Mode {
		case filter.ModeTopK:
			parts = append(parts, fmt.Sprintf("default top %d entities", pol.K))
		case filter.ModeMedian:
			parts = append(parts, fmt.Sprintf("default median > %s", utils.FormatNumber(pol.Threshold)))
		case filter.ModeExplicit:
			parts = append(parts, "no entities selected")
		default:
			parts = append(parts, "all entities")
		}
	}
	if len(sel.Categories) > 0 {
		parts = append(parts, "categories="+strings.Join(sel.Categories, ", "))
	}
	if sel.YearMin != 0 || sel.YearMax != 0 {
		lo, hi := "…", "…"
		if sel.YearMin != 0 {
			lo = fmt.Sprint(sel.YearMin)
		}
		if sel.YearMax != 0 {
			hi = fmt.Sprint(sel.YearMax)
		}
		parts = append(parts, fmt.Sprintf("years %s-%s", lo, hi))
	}
	return strings.Join(parts, "; ")
}

func describeRows(rows []tidy.Record) string {
	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, describe(r))
	}
	return strings.Join(labels, "; ")
}

func describe(r tidy.Record) string {
	parts := []string{r.Entity}
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	if r.Year != 0 {
		parts = append(parts, fmt.Sprint(r.Year))
	}
	return strings.Join(parts, " / ")
}
