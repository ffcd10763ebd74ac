package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zerotobillion/teapot-server/bootstrap"
	"github.com/zerotobillion/teapot-server/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the teapot server",
	Long: `Start the teapot server.

The server will:
  - Load configuration from teapot.yaml (or --config)
  - Or load configuration from TEAPOT_* environment variables (with .env fallback)
  - Serve the landing page on GET and the pots on BREW
  - Send completion notifications when a brew finishes

Environment variables (for Docker deployments):
  TEAPOT_SERVER_PORT     - Server port (default: 8080)
  TEAPOT_MIN_TRAFFIC     - Requests per second to open the gated pot
  TEAPOT_NOTIFY_MODE     - Notifier mode: none, smtp, mock
  TEAPOT_EMAIL_CREDS     - SMTP credentials as user:password:host:port
  TEAPOT_EMAIL_RECEIVER  - Notification receivers, semicolon separated
  TEAPOT_DATABASE_DSN    - Audit event database path
  TEAPOT_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  teapot serve
  teapot serve --config /etc/teapot/config.yaml
  teapot serve --hot-reload=false

  # Docker (env vars only):
  TEAPOT_SERVER_PORT=8080 teapot serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	// Create application
	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		// Load config (file with env overrides, or env-only)
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
