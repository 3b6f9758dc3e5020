package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/sites"
	"github.com/KaramelBytes/minedash/internal/utils"
	"gopkg.in/yaml.v3"
)

// Catalog is an ordered set of descriptors. Relative paths resolve against
// DataDir.
type Catalog struct {
	DataDir  string       `yaml:"data_dir"`
	Datasets []Descriptor `yaml:"datasets"`
}

// Year range of the mineral statistics tables.
const (
	MineralStatsFrom = 2012
	MineralStatsTo   = 2021
)

// VietnamSeries are the yearbook columns shown on the Vietnam page.
var VietnamSeries = []string{
	"Titan ores / (for 2005-2010, its 52% TiO2) (000, tons)",
	"Coal (000, tons)",
	"Iron ores (000, tons)",
	"Copper ores (ton)",
	"Antimoan ores (ton)",
	"Stone of all kinds (Mill. M3)",
	"Sands (Thous. M3)",
	"Pebbles, gravel (Thous. M3)",
	"Apatite ores (000, tons)",
	"Lime (000, tons)",
	"Sand, Pebbles (Thous. M3)",
}

// Builtin returns the catalog of bundled datasets rooted at dataDir.
func Builtin(dataDir string) *Catalog {
	c := &Catalog{DataDir: dataDir}
	files := map[string]map[string]string{
		"Titanium": {
			"Export":     "Titanium Export Statistics.csv",
			"Import":     "Titanium Import Statistics.csv",
			"Production": "Titanium Production Statistics.csv",
		},
		"Zirconium": {
			"Export":     "Zirconium Export Statistics.csv",
			"Import":     "Zirconium Import Statistics.csv",
			"Production": "Zirconium Production Statistics.csv",
		},
		"Rare Earth": {
			"Export":     "Rare_Earth_Export Statistics.csv",
			"Import":     "Rare_Earth_Import Statistics.csv",
			"Production": "Rare_Earth_Production_Statistics.csv",
		},
	}
	for _, mineral := range []string{"Titanium", "Zirconium", "Rare Earth"} {
		for _, stat := range []string{"Export", "Import", "Production"} {
			c.Datasets = append(c.Datasets, Descriptor{
				Name:           Slug(mineral, stat),
				Title:          fmt.Sprintf("%s %s Statistics", mineral, stat),
				Path:           files[mineral][stat],
				Layout:         LayoutWide,
				EntityColumn:   "Country",
				CategoryColumn: "Sub-commodity",
				YearMin:        MineralStatsFrom,
				YearMax:        MineralStatsTo,
				Unit:           "Metric Ton",
				Default:        filter.Policy{Mode: filter.ModeTopK, K: 5},
			})
		}
	}
	c.Datasets = append(c.Datasets,
		Descriptor{
			Name:   "mining-deposits",
			Title:  "Global Mineral Mining Stations",
			Path:   "Global Mineral Mining Stations.csv",
			Layout: LayoutPoints,
			Sites: &sites.Columns{
				Name:        "DEPOSIT_NA",
				Country:     "LOCATION",
				Detail:      "LOC_DETAIL",
				Mineral:     "CRITICAL_M",
				DepositType: "DEPOSIT_TY",
				Lat:         "LATITUDE",
				Lon:         "LONGITUDE",
			},
		},
		Descriptor{
			Name:         "mining-areas",
			Title:        "Global Mining Area per Country",
			Path:         "global_mining_area_per_country_v2.csv",
			Layout:       LayoutSingle,
			EntityColumn: "COUNTRY_NAME",
			CodeColumn:   "ISO3_CODE",
			ValueColumn:  "AREA",
			ExtraColumns: []string{"N_FEATURES"},
			Unit:         "km²",
			Default:      filter.Policy{Mode: filter.ModeAll},
		},
		Descriptor{
			Name:         "vietnam-yearbook",
			Title:        "Vietnam Mineral Production Statistics",
			Path:         "Vietnam Statistical Yearbook Data.csv",
			Layout:       LayoutNarrow,
			YearColumn:   "Year",
			ValueColumns: append([]string(nil), VietnamSeries...),
			Default:      filter.Policy{Mode: filter.ModeMedian, Threshold: 10000},
		},
	)
	return c
}

// LoadCatalog reads a YAML catalog. An empty or relative data_dir resolves
// against the catalog file's directory.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	base := filepath.Dir(path)
	switch {
	case c.DataDir == "":
		c.DataDir = base
	case !filepath.IsAbs(c.DataDir):
		c.DataDir = filepath.Join(base, c.DataDir)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the catalog as YAML.
func (c *Catalog) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// Validate checks every descriptor and rejects duplicate names.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Datasets))
	for _, d := range c.Datasets {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate dataset name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// Lookup returns the named descriptor with its Path made absolute against
// DataDir.
func (c *Catalog) Lookup(name string) (Descriptor, error) {
	for _, d := range c.Datasets {
		if d.Name == name {
			if !filepath.IsAbs(d.Path) && c.DataDir != "" {
				d.Path = filepath.Join(c.DataDir, d.Path)
			}
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}

// Names lists dataset names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		out = append(out, d.Name)
	}
	return out
}
