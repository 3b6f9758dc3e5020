package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/render"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	mapYear       int
	mapOutput     string
	mapEntities   []string
	mapCategories []string
	mapCountries  []string
	mapMinerals   []string
	mapTypes      []string
)

var mapCmd = &cobra.Command{
	Use:   "map <dataset>",
	Short: "Resolve map markers for a dataset and write them as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := lookupDataset(args[0])
		if err != nil {
			return err
		}
		var markers []pipeline.Marker
		if desc.Layout == dataset.LayoutPoints {
			sv, err := pipeline.RunSites(desc, filter.SiteSelection{
				Countries:    mapCountries,
				Minerals:     mapMinerals,
				DepositTypes: mapTypes,
			})
			if err != nil {
				return err
			}
			markers = pipeline.SiteMarkers(sv.Sites)
		} else {
			v, err := pipeline.Run(desc, filter.Selection{Entities: mapEntities, Categories: mapCategories}, pipeline.Options{})
			if err != nil {
				return err
			}
			year := mapYear
			if year == 0 && len(v.Years) > 0 {
				year = v.Years[0]
			}
			log := newLogger()
			res, err := newResolver(log)
			if err != nil {
				return err
			}
			markers = pipeline.Markers(cmd.Context(), v, year, res)
			if len(markers) == 0 && !v.Empty() {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no entity could be geocoded")
			}
		}

		var buf bytes.Buffer
		if err := render.WriteGeoJSON(&buf, markers); err != nil {
			return err
		}
		if mapOutput == "" {
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		}
		if err := utils.SafeWriteFile(mapOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write geojson: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d markers to %s\n", len(markers), mapOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().IntVar(&mapYear, "year", 0, "year to map (default: earliest available)")
	mapCmd.Flags().StringVarP(&mapOutput, "output", "o", "", "optional path to write GeoJSON")
	mapCmd.Flags().StringSliceVar(&mapEntities, "entity", nil, "entities to keep")
	mapCmd.Flags().StringSliceVar(&mapCategories, "category", nil, "categories to keep")
	mapCmd.Flags().StringSliceVar(&mapCountries, "country", nil, "points datasets: countries to keep")
	mapCmd.Flags().StringSliceVar(&mapMinerals, "mineral", nil, "points datasets: minerals to keep")
	mapCmd.Flags().StringSliceVar(&mapTypes, "type", nil, "points datasets: deposit types to keep")
}
