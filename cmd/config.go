package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/minedash/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set minedash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		if c.CatalogFile != "" {
			fmt.Fprintf(out, "catalog_file: %s\n", c.CatalogFile)
		}
		fmt.Fprintf(out, "workspace_dir: %s\n", c.WorkspaceDir)
		fmt.Fprintf(out, "default_top_n: %d\n", c.DefaultTopN)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(c.CORSOrigins, ","))
		fmt.Fprintf(out, "admin_token_hash: %s\n", mask(c.AdminTokenHash))
		fmt.Fprintf(out, "geocoder_url: %s\n", c.GeocoderURL)
		fmt.Fprintf(out, "geocoder_user_agent: %s\n", c.GeocoderUserAgent)
		fmt.Fprintf(out, "geocode_rps: %.2f\n", c.GeocodeRPS)
		fmt.Fprintf(out, "geocode_workers: %d\n", c.GeocodeWorkers)
		fmt.Fprintf(out, "geocode_timeout_sec: %d\n", c.GeocodeTimeoutSec)
		if c.GeocodeFallbackFile != "" {
			fmt.Fprintf(out, "geocode_fallback_file: %s\n", c.GeocodeFallbackFile)
		}
		if c.PostgresDSN != "" {
			fmt.Fprintf(out, "postgres_dsn: %s\n", mask(c.PostgresDSN))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if err := cfgpkg.Set(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
