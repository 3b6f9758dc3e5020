package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/minedash/internal/auth"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	uploadName  string
	uploadDesc  string
	uploadToken string
	uploadRows  int
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Add a CSV table to the admin workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadName == "" {
			return fmt.Errorf("--name is required")
		}
		reg, err := openUploads()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		token := uploadToken
		if token == "" {
			token = os.Getenv("MINEDASH_ADMIN_TOKEN")
		}
		canUpload := auth.NewGate(currentConfig().AdminTokenHash).Allow(token)
		e, err := reg.Upload(canUpload, uploadName, uploadDesc, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s: %d rows, %d columns\n", e.Name, e.Rows, len(e.Columns))
		return nil
	},
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Inspect or remove uploaded tables",
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openUploads()
		if err != nil {
			return err
		}
		entries := reg.List()
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "(no uploads)")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "- %s: %d rows (%s)\n", e.Name, e.Rows, e.Description)
		}
		return nil
	},
}

var uploadsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the first rows of an uploaded table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openUploads()
		if err != nil {
			return err
		}
		e, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		pv, err := reg.Preview(e, uploadRows)
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(pv)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var uploadsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove an uploaded table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openUploads()
		if err != nil {
			return err
		}
		token := uploadToken
		if token == "" {
			token = os.Getenv("MINEDASH_ADMIN_TOKEN")
		}
		canUpload := auth.NewGate(currentConfig().AdminTokenHash).Allow(token)
		if err := reg.Remove(canUpload, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "dataset name (lowercase letters, digits, '-' and '_')")
	uploadCmd.Flags().StringVar(&uploadDesc, "desc", "", "dataset description")
	uploadCmd.Flags().StringVar(&uploadToken, "token", "", "admin token (or MINEDASH_ADMIN_TOKEN)")

	rootCmd.AddCommand(uploadsCmd)
	uploadsCmd.AddCommand(uploadsListCmd)
	uploadsCmd.AddCommand(uploadsShowCmd)
	uploadsCmd.AddCommand(uploadsRmCmd)
	uploadsShowCmd.Flags().IntVar(&uploadRows, "rows", 5, "rows to print")
	uploadsRmCmd.Flags().StringVar(&uploadToken, "token", "", "admin token (or MINEDASH_ADMIN_TOKEN)")
}
