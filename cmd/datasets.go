package cmd

import (
	"fmt"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the datasets in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(cat.Datasets) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range cat.Datasets {
			span := ""
			if d.Layout != dataset.LayoutPoints && d.Layout != dataset.LayoutSingle && d.YearMin > 0 {
				span = fmt.Sprintf(" %d-%d", d.YearMin, d.YearMax)
			}
			fmt.Fprintf(out, "- %s: %s (%s%s)\n", d.Name, d.Title, d.Layout, span)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
