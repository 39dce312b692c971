package main

import (
	"github.com/spf13/cobra"

	_ "github.com/jackzampolin/bookboost/docs/swagger"
	"github.com/jackzampolin/bookboost/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BookBoost server",
	Long: `Start the BookBoost HTTP server.

This opens the configured job store and runs the extraction pipeline.
With store.backend set to defra, the DefraDB container is started too
and stopped again when the server shuts down (via Ctrl+C or SIGTERM).

Config file changes to providers and prompts apply without a restart.

The server provides:
  - /health  - Basic server health check
  - /ready   - Readiness check (includes DefraDB status)
  - /status  - Providers, event bus and job counts
  - /api/... - Job, LLM call and prompt endpoints
  - /swagger - API documentation

Examples:
  bookboost serve                    # Start on default port 8080
  bookboost serve --port 3000        # Start on custom port
  bookboost serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			logger.Info("using config file", "path", f)
			mgr.WatchConfig()
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
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
