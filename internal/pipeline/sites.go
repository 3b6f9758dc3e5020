package pipeline

import (
	"fmt"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/sites"
	"github.com/KaramelBytes/minedash/internal/table"
)

// SiteView is the filtered state of a points dataset.
type SiteView struct {
	Dataset string               `json:"dataset"`
	Title   string               `json:"title"`
	Sel     filter.SiteSelection `json:"selection"`
	Total   int                  `json:"total"`
	Skipped int                  `json:"skipped"`
	Sites   []sites.Site         `json:"sites"`

	ByCountry map[string]int `json:"by_country"`
	ByType    map[string]int `json:"by_deposit_type"`
	ByMineral map[string]int `json:"by_mineral"`

	// Widget options, taken from the unfiltered sites.
	Countries    []string `json:"countries"`
	Minerals     []string `json:"minerals"`
	DepositTypes []string `json:"deposit_types"`
}

// RunSites loads a points dataset and applies sel.
func RunSites(desc dataset.Descriptor, sel filter.SiteSelection) (*SiteView, error) {
	if desc.Layout != dataset.LayoutPoints || desc.Sites == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongLayout, desc.Name, desc.Layout)
	}
	t, err := table.Load(desc.Path, table.Options{})
	if err != nil {
		return nil, err
	}
	all, skipped, err := sites.FromTable(t, *desc.Sites)
	if err != nil {
		return nil, err
	}
	kept := filter.Sites(all, sel)
	if kept == nil {
		kept = []sites.Site{}
	}
	return &SiteView{
		Dataset:      desc.Name,
		Title:        desc.Title,
		Sel:          sel,
		Total:        len(all),
		Skipped:      skipped,
		Sites:        kept,
		ByCountry:    sites.CountBy(kept, sites.Country),
		ByType:       sites.CountBy(kept, sites.DepositType),
		ByMineral:    sites.CountBy(kept, sites.Mineral),
		Countries:    sites.Options(all, sites.Country),
		Minerals:     sites.Options(all, sites.Mineral),
		DepositTypes: sites.Options(all, sites.DepositType),
	}, nil
}
