// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/niche/internal/inspect"
	"github.com/holomush/niche/internal/snapshot"
	"github.com/holomush/niche/pkg/errutil"
)

// CodeCheckFailed is returned when any checked partition is inconsistent or
// could not be loaded.
const CodeCheckFailed = "CHECK_FAILED"

// checkConfig holds flags for the check command.
type checkConfig struct {
	inline []string
	json   bool
}

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check [snapshot-file...]",
		Short: "Verify partition snapshots",
		Long: `Verify one or more partition snapshot files and inline partitions.
The command fails if any partition is inconsistent or cannot be loaded.

Inline partitions list each species as "index: [recorded indices]",
separated by semicolons, e.g. "0: [0, 0]; 1: [1]".`,
		Example: `  niche check population/gen-0042.yaml
  niche check --inline "0: [0]; 1: []"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfg, args)
		},
	}

	cmd.Flags().StringArrayVar(&cfg.inline, "inline", nil, "inline partition to verify (repeatable)")
	cmd.Flags().BoolVar(&cfg.json, "json", false, "print one JSON report per partition")

	return cmd
}

func runCheck(cmd *cobra.Command, cfg *checkConfig, files []string) error {
	if len(files) == 0 && len(cfg.inline) == 0 {
		return oops.Errorf("nothing to check: pass snapshot files or --inline")
	}

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(conf, cmd.ErrOrStderr())

	inspector := inspect.New(
		inspect.WithLogger(logger),
		inspect.WithScanMode(conf.Scan()),
	)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	failed, total := 0, 0

	check := func(source string, report inspect.Report, err error) error {
		total++
		if err != nil || !report.OK() {
			failed++
		}
		if cfg.json {
			return writeJSON(out, source, report, err)
		}
		writeText(out, source, report, err)
		return nil
	}

	for _, path := range files {
		report, err := inspector.InspectFile(ctx, path)
		if werr := check(path, report, err); werr != nil {
			return werr
		}
	}
	for _, expr := range cfg.inline {
		report, err := inspector.InspectNotation(ctx, expr)
		if werr := check(inspect.SourceInline, report, err); werr != nil {
			return werr
		}
	}

	if failed > 0 {
		return oops.Code(CodeCheckFailed).
			With("failed", failed).
			With("total", total).
			Errorf("%d of %d partitions failed verification", failed, total)
	}
	return nil
}

func writeText(w io.Writer, source string, report inspect.Report, err error) {
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(w, "ERROR %s: %s\n", source, describeError(err))
	case report.OK():
		_, _ = fmt.Fprintf(w, "OK    %s (species=%d genomes=%d)\n",
			source, report.Species, report.Result.GenomesScanned)
	default:
		_, _ = fmt.Fprintf(w, "FAIL  %s (%d violations)\n", source, len(report.Result.Violations))
		for _, v := range report.Result.Violations {
			_, _ = fmt.Fprintf(w, "      %s\n", v)
		}
	}
}

// describeError shortens schema errors to the validator's findings.
func describeError(err error) string {
	if errutil.Code(err) == snapshot.CodeSchema {
		return "snapshot does not match schema: " + snapshot.FormatSchemaError(err)
	}
	return err.Error()
}

// jsonReport is one line of --json output.
type jsonReport struct {
	*inspect.Report
	Source string `json:"source"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w io.Writer, source string, report inspect.Report, err error) error {
	line := jsonReport{Source: source, OK: err == nil && report.OK()}
	if err != nil {
		line.Error = describeError(err)
	} else {
		line.Report = &report
	}
	if encErr := json.NewEncoder(w).Encode(line); encErr != nil {
		return oops.Wrapf(encErr, "writing report")
	}
	return nil
}
