package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Slate server",
	Long: `Start the Slate HTTP server.

Jobs are stored in ~/.slate/data/jobs.db unless storage.backend is memory.
Edits to the config file are picked up while the server runs: provider
settings, retry policy and analysis tunables apply to the next call.

The server provides:
  - /health and /ready       - Health checks
  - /api/v1/upload           - Upload a script
  - /api/v1/analyze          - Start an analysis
  - /api/v1/jobs/{id}/stream - Follow progress over a websocket

Examples:
  slate serve                    # Start on the configured address
  slate serve --port 3000        # Start on custom port
  slate serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(os.Stdout, mgr.Get().LogLevel)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr.WatchConfig(func(err error) {
			logger.Warn("ignoring invalid config change", "error", err)
		})
		if f := mgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}
