package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

// listParam collects a repeatable parameter. Each value may also hold a
// comma separated list; a literal comma is written as "\,".
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		out = append(out, splitEscaped(raw)...)
	}
	return out
}

func splitEscaped(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if v := strings.TrimSpace(cur.String()); v != "" {
			out = append(out, v)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == ',':
			cur.WriteByte(',')
			i++
		case s[i] == ',':
			flush()
		default:
			cur.WriteByte(s[i])
		}
	}
	flush()
	return out
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", pipeline.ErrBadQuery, key, raw)
	}
	return n, nil
}

func floatParam(q url.Values, key string) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", pipeline.ErrBadQuery, key, raw)
	}
	return f, nil
}

// parseSelection reads entity, category, from and to.
func parseSelection(q url.Values) (filter.Selection, error) {
	from, err := intParam(q, "from")
	if err != nil {
		return filter.Selection{}, err
	}
	to, err := intParam(q, "to")
	if err != nil {
		return filter.Selection{}, err
	}
	sel := filter.Selection{
		Entities:   listParam(q, "entity"),
		Categories: listParam(q, "category"),
		YearMin:    from,
		YearMax:    to,
	}
	if err := sel.Validate(); err != nil {
		return filter.Selection{}, fmt.Errorf("%w: %v", pipeline.ErrBadQuery, err)
	}
	return sel, nil
}

// parseOptions reads top, corr, default, k and threshold.
func parseOptions(q url.Values, defaultTop int) (pipeline.Options, error) {
	opt := pipeline.Options{TopN: defaultTop}
	top, err := intParam(q, "top")
	if err != nil {
		return opt, err
	}
	if top > 0 {
		opt.TopN = top
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("corr"))) {
	case "":
	case "entity":
		opt.Correlate, opt.CorrBy = true, tidy.ByEntity
	case "category":
		opt.Correlate, opt.CorrBy = true, tidy.ByCategory
	default:
		return opt, fmt.Errorf("%w: corr must be entity or category", pipeline.ErrBadQuery)
	}
	if mode := q.Get("default"); mode != "" {
		k, err := intParam(q, "k")
		if err != nil {
			return opt, err
		}
		th, err := floatParam(q, "threshold")
		if err != nil {
			return opt, err
		}
		pol, err := filter.ParsePolicy(mode, k, th)
		if err != nil {
			return opt, fmt.Errorf("%w: %v", pipeline.ErrBadQuery, err)
		}
		opt.Policy = &pol
	}
	return opt, nil
}

func parseSiteSelection(q url.Values) filter.SiteSelection {
	return filter.SiteSelection{
		Countries:    listParam(q, "country"),
		Minerals:     listParam(q, "mineral"),
		DepositTypes: listParam(q, "type"),
	}
}
