package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "teapot",
	Short: "Tea brewing server speaking a BREW control protocol",
	Long: `Teapot is a tea brewing server.

It exposes pots over HTTP: a BREW request with content type
message/teapot starts or stops a brew, one pot per client and tea
variant. A high-demand variant only brews under sustained traffic.

Quick start:
  teapot serve      # Start the server
  teapot validate   # Validate configuration
  teapot events     # Inspect the audit event log`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "teapot.yaml", "config file path")
}
