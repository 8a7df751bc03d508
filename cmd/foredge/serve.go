package main

import (
	"github.com/spf13/cobra"

	"github.com/bindery/foredge/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the foredge server",
	Long: `Start the foredge HTTP server.

The server provides:
  - POST /process          - Submit a document with edge artwork
  - GET  /runs/{id}        - Poll run state, progress and warnings
  - GET  /runs/{id}/result - Download the finished document
  - POST /analyze          - Page count and trim dimensions of a PDF
  - GET  /health           - Basic server health check

Examples:
  foredge serve                  # Listen on :8080
  foredge serve --addr :3000     # Listen on a custom address`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		pipe, cm, err := setup(logger)
		if err != nil {
			return err
		}
		cm.WatchConfig()

		cfg := cm.Get()
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv, err := server.New(server.Config{
			Addr:        addr,
			MaxUploadMB: cfg.Server.MaxUploadMB,
			Pipeline:    pipe,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
