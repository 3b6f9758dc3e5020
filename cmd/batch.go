package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/render"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	batchAll   bool
	batchOut   string
	batchXLSX  bool
	batchChart string
	batchQuiet bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [datasets...]",
	Short: "Write default-view summaries for several datasets with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchAll == (len(args) > 0) {
			return fmt.Errorf("specify dataset names or --all")
		}
		if batchOut == "" {
			return fmt.Errorf("--out is required")
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		names := args
		if batchAll {
			names = cat.Names()
		}
		descs := make([]dataset.Descriptor, 0, len(names))
		for _, n := range names {
			d, err := cat.Lookup(n)
			if err != nil {
				return err
			}
			descs = append(descs, d)
		}
		if err := utils.EnsureDir(batchOut); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		opt := pipeline.Options{TopN: currentConfig().DefaultTopN}
		total := len(descs)
		for i, d := range descs {
			if !batchQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, d.Name)
			}
			written, err := summarize(d, opt)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
			if !batchQuiet {
				for _, p := range written {
					fmt.Fprintf(out, "✓ Wrote %s\n", filepath.Base(p))
				}
			}
		}
		return nil
	},
}

// summarize runs d with its default policy and writes the artifacts
// requested by flags. It returns the written paths.
func summarize(d dataset.Descriptor, opt pipeline.Options) ([]string, error) {
	var (
		md   string
		book bytes.Buffer
		view *pipeline.View
	)
	if d.Layout == dataset.LayoutPoints {
		sv, err := pipeline.RunSites(d, filter.SiteSelection{})
		if err != nil {
			return nil, err
		}
		md = sv.Markdown()
		if batchXLSX {
			if err := render.WriteSitesXLSX(&book, sv); err != nil {
				return nil, err
			}
		}
	} else {
		v, err := pipeline.Run(d, filter.Selection{}, opt)
		if err != nil {
			return nil, err
		}
		view = v
		md = v.Markdown()
		if batchXLSX {
			if err := render.WriteXLSX(&book, v); err != nil {
				return nil, err
			}
		}
	}

	base := filepath.Join(batchOut, d.Name)
	written := []string{base + ".summary.md"}
	if err := os.WriteFile(written[0], []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if batchXLSX {
		p := base + ".xlsx"
		if err := os.WriteFile(p, book.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write workbook: %w", err)
		}
		written = append(written, p)
	}
	if batchChart != "" && view != nil {
		p := base + ".png"
		if err := writeChart(p, batchChart, view); err != nil {
			return nil, err
		}
		written = append(written, p)
	}
	return written, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "process every dataset in the catalog")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output directory for summaries")
	batchCmd.Flags().BoolVar(&batchXLSX, "xlsx", false, "also write <name>.xlsx workbooks")
	batchCmd.Flags().StringVar(&batchChart, "chart", "", "also write <name>.png charts of this kind: line | bar | box")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress progress and non-essential output")
}
