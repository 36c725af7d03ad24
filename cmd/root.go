/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/inkpost/apiserver/config"
	"github.com/inkpost/apiserver/internal/observability"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inkpost",
	Short: "Inkpost blog API",
	Long: `Inkpost serves a small blog API: account registration and login
with bearer tokens, and post publishing with per-author ownership.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and builds the logger every command uses.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := observability.NewLogger(cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
