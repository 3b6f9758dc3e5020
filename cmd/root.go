package cmd

import (
	"fmt"
	"os"
	"time"

	cfgpkg "github.com/KaramelBytes/minedash/internal/config"
	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/geocode"
	"github.com/KaramelBytes/minedash/internal/store"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	catalogPath string
	dataDir     string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "minedash",
	Short: "minedash: mineral statistics dashboards from CSV/XLSX tables",
	Long: `minedash normalizes mineral trade and production tables into tidy records,
filters and aggregates them, and renders reports, charts, workbooks and map markers.
The same views are served over HTTP by 'minedash serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.minedash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "dataset catalog YAML (overrides config catalog_file)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the bundled tables (overrides config data_dir)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = &cfgpkg.Global{DataDir: "data", DefaultTopN: 10}
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && dataDir != "" {
		cfg.DataDir = dataDir
	}
	if f.Changed("catalog") && catalogPath != "" {
		cfg.CatalogFile = catalogPath
	}
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

func newLogger() *utils.Logger {
	return utils.NewLoggerTo(os.Stderr, os.Stderr, debug)
}

// loadCatalog returns the configured catalog file, or the built-in catalog
// rooted at data_dir.
func loadCatalog() (*dataset.Catalog, error) {
	c := currentConfig()
	if c.CatalogFile != "" {
		cat, err := dataset.LoadCatalog(c.CatalogFile)
		if err != nil {
			return nil, err
		}
		return cat, nil
	}
	return dataset.Builtin(c.DataDir), nil
}

func lookupDataset(name string) (dataset.Descriptor, error) {
	cat, err := loadCatalog()
	if err != nil {
		return dataset.Descriptor{}, err
	}
	return cat.Lookup(name)
}

// newResolver chains the optional offline coordinates file in front of the
// remote geocoder and wraps both in the memo cache.
func newResolver(log *utils.Logger) (*geocode.Resolver, error) {
	c := currentConfig()
	var chain geocode.Chain
	if c.GeocodeFallbackFile != "" {
		st, err := geocode.LoadStatic(c.GeocodeFallbackFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, st)
	}
	chain = append(chain, geocode.NewClient(geocode.ClientOptions{
		BaseURL:    c.GeocoderURL,
		UserAgent:  c.GeocoderUserAgent,
		Timeout:    time.Duration(c.GeocodeTimeoutSec) * time.Second,
		RatePerSec: c.GeocodeRPS,
	}))
	return geocode.NewResolver(chain,
		geocode.WithWorkers(c.GeocodeWorkers),
		geocode.WithLogger(log),
	), nil
}

func openUploads() (*store.Registry, error) {
	dir := currentConfig().WorkspaceDir
	if dir == "" {
		return nil, fmt.Errorf("workspace_dir is not configured")
	}
	return store.Open(dir)
}
