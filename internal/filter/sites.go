package filter

import (
	"strings"

	"github.com/KaramelBytes/minedash/internal/sites"
)

// All is the widget value meaning "no constraint" for single-choice filters.
const All = "All"

// SiteSelection narrows mining sites. Each dimension is optional.
type SiteSelection struct {
	Countries    []string `json:"countries,omitempty"`
	Minerals     []string `json:"minerals,omitempty"`
	DepositTypes []string `json:"deposit_types,omitempty"`
}

// Sites returns the sites matching every non-empty dimension of sel.
func Sites(in []sites.Site, sel SiteSelection) []sites.Site {
	inCountry := In(dropAll(sel.Countries))
	inMineral := In(dropAll(sel.Minerals))
	inType := In(dropAll(sel.DepositTypes))
	out := Where(in,
		func(s sites.Site) bool { return inCountry(s.Country) },
		func(s sites.Site) bool { return inMineral(s.Mineral) },
		func(s sites.Site) bool { return inType(s.DepositType) },
	)
	if out == nil {
		out = []sites.Site{}
	}
	return out
}

func dropAll(vals []string) []string {
	var out []string
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, All) {
			continue
		}
		out = append(out, v)
	}
	return out
}
