package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var initDataDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in catalog to the workspace as catalog.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := currentConfig().WorkspaceDir
		if dir == "" {
			return fmt.Errorf("workspace_dir is not configured")
		}
		path := filepath.Join(dir, "catalog.yaml")
		// Refuse to overwrite an existing catalog.
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("catalog already exists at %s", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat catalog: %w", err)
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		root := initDataDir
		if root == "" {
			root = currentConfig().DataDir
		}
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		if err := dataset.Builtin(root).Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Catalog initialized: %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "  Use it with --catalog %s or 'minedash config set catalog_file %s'\n", path, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "tables", "", "directory holding the tables (default: data_dir)")
}
