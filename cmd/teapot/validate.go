package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zerotobillion/teapot-server/adapters/sqlite"
	"github.com/zerotobillion/teapot-server/config"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the teapot configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Database is writable (optional)

Examples:
  teapot validate
  teapot validate --config /etc/teapot/config.yaml`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	fmt.Printf("  %s Variants: %s (gated: %s at %d req/s)\n",
		checkMark, strings.Join(cfg.Brew.Variants, ", "), cfg.Brew.GatedVariant, cfg.Brew.MinTraffic)
	fmt.Printf("  %s Notify mode: %s\n", checkMark, cfg.Notify.Mode)

	if validateCheckDatabase {
		if cfg.Database.DSN == "" {
			fmt.Printf("  %s Database not configured (event log disabled)\n", checkMark)
		} else {
			db, err := sqlite.Open(cfg.Database.DSN)
			if err != nil {
				fmt.Printf("  %s Database writable\n", crossMark)
				return fmt.Errorf("database error: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				fmt.Printf("  %s Database writable\n", crossMark)
				return fmt.Errorf("migration error: %w", err)
			}
			fmt.Printf("  %s Database writable\n", checkMark)
		}
	}

	fmt.Println("\nConfiguration is valid.")
	return nil
}
