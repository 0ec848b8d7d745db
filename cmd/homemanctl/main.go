package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "homemanctl",
	Short: "Operator CLI for the homeman booking engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

// loadConfig reads the environment once .env has been applied.
func loadConfig() config.Config {
	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	return cfg
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)

	// Maintenance
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(recomputeRatingsCmd)
}
