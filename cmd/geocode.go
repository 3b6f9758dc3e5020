package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <name...>",
	Short: "Resolve place names to coordinates",
	Long: `Resolve place names through the offline coordinates file (geocode_fallback_file)
and the configured geocoder, the same way map markers are placed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		res, err := newResolver(log)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		missed := 0
		for _, name := range args {
			p, ok := res.Resolve(cmd.Context(), name)
			if !ok {
				missed++
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: could not resolve %q\n", name)
				continue
			}
			fmt.Fprintf(out, "%s: %.4f, %.4f\n", p.Entity, p.Lat, p.Lon)
		}
		log.Debug("geocode cache holds %d names", res.Len())
		if missed == len(args) {
			return fmt.Errorf("no name could be resolved")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
