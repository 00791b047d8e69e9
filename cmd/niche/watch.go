// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/niche/internal/config"
	"github.com/holomush/niche/internal/inspect"
	"github.com/holomush/niche/internal/logging"
	"github.com/holomush/niche/internal/observability"
	"github.com/holomush/niche/internal/watch"
	"github.com/holomush/niche/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd() *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Verify snapshots as they appear in a directory",
		Long: `Poll a directory for partition snapshot files and verify each new or
changed file. Metrics and health probes are served on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("dir", def.Watch.Dir, "directory to watch for snapshots")
	flags.String("pattern", def.Watch.Pattern, "glob matched against snapshot file names")
	flags.Duration("interval", def.Watch.Interval, "polling interval")
	flags.Bool("notify", def.Watch.Notify, "also scan on file system events between polls")
	flags.Uint64("load-attempts", def.Watch.LoadAttempts, "load attempts per changed file")
	flags.String("metrics-addr", def.MetricsAddr, "metrics/health HTTP address (empty = disabled)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := logging.SetDefault(cfg.LoggingOptions(serviceName, version), cmd.ErrOrStderr())

	if err := cfg.EnsureWatchDir(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inspectOpts := []inspect.Option{
		inspect.WithLogger(logger),
		inspect.WithScanMode(cfg.Scan()),
	}

	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, nil)
		inspectOpts = append(inspectOpts, inspect.WithMetrics(obsServer.Metrics()))
	}

	watcher, err := watch.New(cfg.Watch, inspect.New(inspectOpts...), watch.WithLogger(logger))
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsServer.SetReadinessChecker(watcher.Ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Wrapf(err, "starting observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, logger)
		defer stopServer(obsServer, logger)
	}

	cmd.Println("Watching", cfg.Watch.Dir)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger) {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			errutil.LogError(logger, "observability server failed", err)
			cancel()
		}
	}
}

func stopServer(s *observability.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}
