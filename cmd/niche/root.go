// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/niche/internal/config"
	"github.com/holomush/niche/internal/logging"
)

const serviceName = "niche"

// NewRootCmd creates the root command for the niche CLI.
func NewRootCmd() *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "niche",
		Short: "niche - species partition integrity verifier",
		Long: `niche verifies that a population's species partition is consistent:
every species holds at least one genome and every genome records the
index of the species that holds it.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (default: XDG_CONFIG_HOME/niche/config.yaml)")
	flags.String("log-format", def.LogFormat, "log format (json or text)")
	flags.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	flags.String("scan-mode", def.ScanMode, "scan mode (full or first-failing)")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig reads configuration for cmd from the --config file and the
// flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

// newLogger creates the logger for a command. Logs go to w so command output
// stays machine readable.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.Setup(cfg.LoggingOptions(serviceName, version), w)
}
