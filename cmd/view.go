package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/render"
	"github.com/KaramelBytes/minedash/internal/tidy"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	viewEntities   []string
	viewCategories []string
	viewFrom       int
	viewTo         int
	viewTop        int
	viewDefault    string
	viewK          int
	viewThreshold  float64
	viewCorr       string
	viewJSON       bool
	viewOutput     string
	viewXLSX       string
	viewChart      string
	viewChartKind  string
	viewCountries  []string
	viewMinerals   []string
	viewTypes      []string
)

var viewCmd = &cobra.Command{
	Use:   "view <dataset>",
	Short: "Filter and aggregate a dataset and print its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := lookupDataset(args[0])
		if err != nil {
			return err
		}
		if desc.Layout == dataset.LayoutPoints {
			return viewSites(cmd, desc)
		}

		sel := filter.Selection{
			Entities:   viewEntities,
			Categories: viewCategories,
			YearMin:    viewFrom,
			YearMax:    viewTo,
		}
		opt, err := viewOptions(cmd)
		if err != nil {
			return err
		}
		v, err := pipeline.Run(desc, sel, opt)
		if err != nil {
			return err
		}

		if viewXLSX != "" {
			var buf bytes.Buffer
			if err := render.WriteXLSX(&buf, v); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(viewXLSX, buf.Bytes()); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote workbook to %s\n", viewXLSX)
		}
		if viewChart != "" {
			if err := writeChart(viewChart, viewChartKind, v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote chart to %s\n", viewChart)
		}
		return emit(cmd, v, v.Markdown())
	},
}

// viewOptions builds pipeline options from flags, falling back to config.
func viewOptions(cmd *cobra.Command) (pipeline.Options, error) {
	opt := pipeline.Options{TopN: currentConfig().DefaultTopN}
	if viewTop > 0 {
		opt.TopN = viewTop
	}
	switch strings.ToLower(strings.TrimSpace(viewCorr)) {
	case "":
	case "entity":
		opt.Correlate, opt.CorrBy = true, tidy.ByEntity
	case "category":
		opt.Correlate, opt.CorrBy = true, tidy.ByCategory
	default:
		return opt, fmt.Errorf("unsupported --corr: %s (use entity|category)", viewCorr)
	}
	if cmd.Flags().Changed("default") {
		pol, err := filter.ParsePolicy(viewDefault, viewK, viewThreshold)
		if err != nil {
			return opt, err
		}
		opt.Policy = &pol
	}
	return opt, nil
}

func viewSites(cmd *cobra.Command, desc dataset.Descriptor) error {
	sv, err := pipeline.RunSites(desc, filter.SiteSelection{
		Countries:    viewCountries,
		Minerals:     viewMinerals,
		DepositTypes: viewTypes,
	})
	if err != nil {
		return err
	}
	if viewXLSX != "" {
		var buf bytes.Buffer
		if err := render.WriteSitesXLSX(&buf, sv); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(viewXLSX, buf.Bytes()); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote workbook to %s\n", viewXLSX)
	}
	return emit(cmd, sv, sv.Markdown())
}

// emit writes JSON or Markdown to --output, or to stdout.
func emit(cmd *cobra.Command, v any, md string) error {
	body := []byte(md)
	if viewJSON {
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		body = b
	}
	if viewOutput != "" {
		if err := utils.SafeWriteFile(viewOutput, body); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", viewOutput)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}

// writeChart picks the image format from the file extension.
func writeChart(path, kind string, v *pipeline.View) error {
	k, err := render.ParseKind(kind)
	if err != nil {
		return err
	}
	f, err := render.ParseFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render.Chart(&buf, v, k, f); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringSliceVar(&viewEntities, "entity", nil, "entities (countries) to keep (repeatable, comma-separated)")
	viewCmd.Flags().StringSliceVar(&viewCategories, "category", nil, "categories (sub-commodities) to keep (repeatable, comma-separated)")
	viewCmd.Flags().IntVar(&viewFrom, "from", 0, "first year (inclusive)")
	viewCmd.Flags().IntVar(&viewTo, "to", 0, "last year (inclusive)")
	viewCmd.Flags().IntVar(&viewTop, "top", 0, "rows in the top table (default: config default_top_n)")
	viewCmd.Flags().StringVar(&viewDefault, "default", "", "default entity policy: topk | all | explicit | median")
	viewCmd.Flags().IntVar(&viewK, "k", 0, "K for --default topk")
	viewCmd.Flags().Float64Var(&viewThreshold, "threshold", 0, "minimum median for --default median")
	viewCmd.Flags().StringVar(&viewCorr, "corr", "", "correlation matrix across years: entity | category")
	viewCmd.Flags().BoolVar(&viewJSON, "json", false, "print the view as JSON instead of Markdown")
	viewCmd.Flags().StringVarP(&viewOutput, "output", "o", "", "optional path to write the report")
	viewCmd.Flags().StringVar(&viewXLSX, "xlsx", "", "optional path to write an Excel workbook")
	viewCmd.Flags().StringVar(&viewChart, "chart", "", "optional path to write a chart (.png or .svg)")
	viewCmd.Flags().StringVar(&viewChartKind, "chart-kind", "line", "chart kind: line | bar | box | area | heatmap | scatter")
	viewCmd.Flags().StringSliceVar(&viewCountries, "country", nil, "points datasets: countries to keep")
	viewCmd.Flags().StringSliceVar(&viewMinerals, "mineral", nil, "points datasets: minerals to keep")
	viewCmd.Flags().StringSliceVar(&viewTypes, "type", nil, "points datasets: deposit types to keep")
}
