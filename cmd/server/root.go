package main

import (
	"account-service/internal/config"
	"account-service/internal/logger"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the CLI. With no subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "account-service",
		Short:         "Session-authenticated account and user management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", map[string]any{"error": err.Error()})
		return config.Config{}, err
	}

	appVersion := cfg.AppVersion
	if appVersion == "dev" {
		appVersion = version
	}
	logger.Configure("account-service", appVersion, cfg.LogFormat, cfg.LogLevel)
	return cfg, nil
}
