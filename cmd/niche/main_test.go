// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/niche/internal/snapshot"
	"github.com/holomush/niche/pkg/errutil"
)

const consistentSnapshot = `format_version: "1.0.0"
generation: 7
species:
  - index: 0
    genomes:
      - species_index: 0
      - species_index: 0
  - index: 1
    genomes:
      - species_index: 1
`

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRootCommand_Help(t *testing.T) {
	out, _, err := execute(t, context.Background(), "--help")
	require.NoError(t, err)

	for _, want := range []string{"check", "watch", "schema", "--config", "--log-format", "--log-level", "--scan-mode"} {
		assert.Contains(t, out, want)
	}
}

func TestWatchCommand_DefaultValues(t *testing.T) {
	cmd := NewWatchCmd()

	pattern, err := cmd.Flags().GetString("pattern")
	require.NoError(t, err)
	assert.Equal(t, "*.{yaml,yml,json}", pattern)

	interval, err := cmd.Flags().GetDuration("interval")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, interval)

	addr, err := cmd.Flags().GetString("metrics-addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9108", addr)
}

func TestCheck_ConsistentFile(t *testing.T) {
	path := writeSnapshot(t, consistentSnapshot)

	out, stderr, err := execute(t, context.Background(), "check", path)
	require.NoError(t, err)

	assert.Contains(t, out, "OK    "+path+" (species=2 genomes=3)")
	assert.Contains(t, stderr, "partition consistent")
}

func TestCheck_InlineViolations(t *testing.T) {
	out, _, err := execute(t, context.Background(), "check", "--inline", "0: [1]; 1: []")
	errutil.AssertErrorCode(t, err, CodeCheckFailed)
	errutil.AssertErrorContext(t, err, "failed", 1)

	assert.Contains(t, out, "FAIL  inline (2 violations)")
	assert.Contains(t, out, "genome with incorrect species index: recorded index [1], parent species index [0], position 0")
	assert.Contains(t, out, "species index [1]")
}

func TestCheck_ScanModeFlag(t *testing.T) {
	out, _, err := execute(t, context.Background(),
		"--scan-mode", "first-failing", "check", "--inline", "0: [1]; 1: []")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  inline (1 violations)")
}

func TestCheck_MixedInputs(t *testing.T) {
	good := writeSnapshot(t, consistentSnapshot)
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	out, _, err := execute(t, context.Background(),
		"check", good, missing, "--inline", "0: [0]")
	errutil.AssertErrorCode(t, err, CodeCheckFailed)
	errutil.AssertErrorContext(t, err, "total", 3)

	assert.Contains(t, out, "OK    "+good)
	assert.Contains(t, out, "ERROR "+missing)
	assert.Contains(t, out, "OK    inline")
}

func TestCheck_SchemaErrorShowsDetail(t *testing.T) {
	path := writeSnapshot(t, "format_version: 1\nspecies: []\n")

	out, _, err := execute(t, context.Background(), "check", path)
	errutil.AssertErrorCode(t, err, CodeCheckFailed)

	assert.Contains(t, out, "ERROR "+path+": snapshot does not match schema: at '/format_version': got number, want string")
	assert.NotContains(t, out, "validation failed")
}

func TestCheck_JSON(t *testing.T) {
	path := writeSnapshot(t, consistentSnapshot)

	out, _, err := execute(t, context.Background(),
		"check", "--json", path, "--inline", "0: []", "--inline", "0: [")
	require.Error(t, err)

	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, path, lines[0]["source"])
	assert.Equal(t, true, lines[0]["ok"])
	assert.InDelta(t, 7, lines[0]["generation"], 0)

	assert.Equal(t, "inline", lines[1]["source"])
	assert.Equal(t, "0: []", lines[1]["notation"])
	assert.Equal(t, false, lines[1]["ok"])
	result, ok := lines[1]["result"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, result["Violations"], 1)

	assert.Equal(t, false, lines[2]["ok"])
	assert.NotEmpty(t, lines[2]["error"])
}

func TestCheck_NothingToCheck(t *testing.T) {
	_, _, err := execute(t, context.Background(), "check")
	assert.Error(t, err)
}

func TestCheck_InvalidConfig(t *testing.T) {
	_, _, err := execute(t, context.Background(), "--log-format", "xml", "check", "--inline", "0: [0]")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestSchema(t *testing.T) {
	out, _, err := execute(t, context.Background(), "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, snapshot.SchemaID, schema["$id"])
}

func TestWatch_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen.yaml"), []byte(consistentSnapshot), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, stderr, err := execute(t, ctx,
		"--log-format", "text",
		"watch", "--dir", dir, "--interval", "20ms", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)

	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, stderr, "partition consistent")
	assert.Contains(t, stderr, "shutdown complete")
}

func TestWatch_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := execute(t, ctx, "watch", "--dir", dir, "--metrics-addr", "")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
