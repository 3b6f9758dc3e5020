package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/minedash/internal/auth"
	"github.com/KaramelBytes/minedash/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dataset views, charts and markers over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		log := newLogger()
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		res, err := newResolver(log)
		if err != nil {
			return err
		}
		uploads, err := openUploads()
		if err != nil {
			return err
		}
		gate := auth.NewGate(c.AdminTokenHash)
		if !gate.Enabled() {
			log.Warn("admin_token_hash is not set; uploads are disabled")
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(server.Options{
			Catalog:  cat,
			Uploads:  uploads,
			Resolver: res,
			Gate:     gate,
			Origins:  c.CORSOrigins,
			TopN:     c.DefaultTopN,
			Logger:   log,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config listen_addr)")
}
