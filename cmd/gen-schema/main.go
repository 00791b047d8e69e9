// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the snapshot JSON Schema so editors and
// population managers can validate snapshot files before niche reads them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/holomush/niche/internal/snapshot"
)

func main() {
	out := pflag.StringP("out", "o", filepath.Join("schemas", "snapshot.schema.json"), "output file")
	pflag.Parse()

	if err := generate(*out); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", *out)
}

func generate(path string) error {
	schema, err := snapshot.GenerateSchema()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, append(schema, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	return nil
}
