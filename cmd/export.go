package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/sink"
	"github.com/spf13/cobra"
)

var (
	exportDSN      string
	exportCSV      string
	exportAttempts int
)

var exportCmd = &cobra.Command{
	Use:   "export <dataset...>",
	Short: "Write normalized tidy records to PostgreSQL and/or CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		dsn := exportDSN
		if dsn == "" {
			dsn = currentConfig().PostgresDSN
		}
		if dsn == "" && exportCSV == "" {
			return fmt.Errorf("specify --postgres-dsn (or config postgres_dsn) and/or --csv")
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var writers []sink.RecordWriter
		defer func() { err = errors.Join(err, closeWriters(writers)) }()
		if dsn != "" {
			pw, err := sink.NewPostgresWriter(ctx, dsn, exportAttempts)
			if err != nil {
				return err
			}
			writers = append(writers, pw)
		}
		if exportCSV != "" {
			cw, err := sink.NewCSVWriter(exportCSV)
			if err != nil {
				return err
			}
			writers = append(writers, cw)
		}

		out := cmd.OutOrStdout()
		for _, name := range args {
			desc, err := cat.Lookup(name)
			if err != nil {
				return err
			}
			recs, stats, err := pipeline.Normalize(desc)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			for _, w := range writers {
				if err := w.Write(ctx, desc.Name, recs); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			fmt.Fprintf(out, "✓ Exported %s: %d records (%d rows dropped)\n", name, len(recs), stats.Dropped)
		}
		return nil
	},
}

// closeWriters closes every writer exactly once and joins their errors.
func closeWriters(writers []sink.RecordWriter) error {
	var errs []error
	for _, w := range writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDSN, "postgres-dsn", "", "PostgreSQL DSN (default: config postgres_dsn)")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "optional path to write a tidy CSV")
	exportCmd.Flags().IntVar(&exportAttempts, "connect-attempts", 5, "database connection attempts")
}
