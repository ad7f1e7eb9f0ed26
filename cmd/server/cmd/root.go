package cmd

import (
	"fmt"
	"os"

	"go-journal-app/internal/config"
	"go-journal-app/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	rootCmd = &cobra.Command{
		Use:   "journal-site",
		Short: "Journal, events calendar and diary web site",
		Long: `journal-site serves a small community site: a shared journal with
comments, the "Define Your Path" events calendar with registration,
DeAnna's diary, an about page and a staff media library.`,
		SilenceUsage: true,
		// Serve when no subcommand is given.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yml or ./configs/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(superuserCmd)
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, logger.New(cfg.Log, os.Stdout), nil
}
