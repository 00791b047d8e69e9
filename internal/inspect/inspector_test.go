// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package inspect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/holomush/niche/internal/observability"
	"github.com/holomush/niche/internal/snapshot"
	"github.com/holomush/niche/pkg/errutil"
	"github.com/holomush/niche/pkg/partition"
)

// recordingSpan captures the events and status set on it.
type recordingSpan struct {
	noop.Span
	name   string
	events []string
	status codes.Code
	ended  bool
}

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.status = code
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordingSpan{name: name}
	t.spans = append(t.spans, span)
	return trace.ContextWithSpan(ctx, span), span
}

// logLines decodes every JSON log line in buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), "bad log line %q", sc.Text())
		lines = append(lines, entry)
	}
	return lines
}

func mustNotation(t *testing.T, expr string) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.ParseNotation(expr)
	require.NoError(t, err)
	return snap
}

func TestInspector_ConsistentPartition(t *testing.T) {
	var buf bytes.Buffer
	tracer := &recordingTracer{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	insp := New(
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		WithTracer(tracer),
		WithMetrics(metrics),
	)

	snap := mustNotation(t, "0: [0 0]; 1: [1]")
	report := insp.Inspect(context.Background(), "gen-1.yaml", snap)

	assert.True(t, report.OK())
	assert.Equal(t, "gen-1.yaml", report.Source)
	assert.Equal(t, snap.ID, report.SnapshotID)
	assert.Equal(t, 2, report.Species)
	assert.False(t, report.AllEmpty)
	assert.True(t, report.AllPopulated)
	assert.Equal(t, 3, report.Result.GenomesScanned)

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, "Inspector.Inspect", span.name)
	assert.Empty(t, span.events)
	assert.Equal(t, codes.Ok, span.status)
	assert.True(t, span.ended)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "partition consistent", lines[0]["msg"])
	assert.Equal(t, snap.ID, lines[0]["snapshot_id"])
	assert.Equal(t, "full", lines[0]["scan_mode"])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.VerificationsTotal.WithLabelValues(observability.ResultConsistent)), 0)
}

func TestInspector_ViolatedPartition(t *testing.T) {
	var buf bytes.Buffer
	tracer := &recordingTracer{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	collector := &partition.Collector{}
	insp := New(
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		WithTracer(tracer),
		WithMetrics(metrics),
		WithReporter(collector),
	)

	report := insp.Inspect(context.Background(), SourceInline, mustNotation(t, "0: []; 1: [1 2]"))

	assert.False(t, report.OK())
	assert.False(t, report.AllEmpty)
	assert.False(t, report.AllPopulated)
	require.Len(t, report.Result.Violations, 2)
	assert.Equal(t, report.Result.Violations, collector.Violations())

	span := tracer.spans[0]
	assert.Equal(t, []string{partition.MessageEmptySpecies, partition.MessageIndexMismatch}, span.events)
	assert.Equal(t, codes.Error, span.status)

	lines := logLines(t, &buf)
	require.Len(t, lines, 3, "one line per violation plus the summary")
	assert.Equal(t, partition.MessageEmptySpecies, lines[0]["msg"])
	assert.Equal(t, SourceInline, lines[0]["source"])
	assert.Equal(t, partition.MessageIndexMismatch, lines[1]["msg"])
	assert.Equal(t, "WARN", lines[2]["level"])
	assert.Equal(t, "partition integrity violated", lines[2]["msg"])
	assert.EqualValues(t, 2, lines[2]["violations"])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.VerificationsTotal.WithLabelValues(observability.ResultViolated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ViolationsTotal.WithLabelValues(string(partition.KindEmptySpecies))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ViolationsTotal.WithLabelValues(string(partition.KindIndexMismatch))), 0)
}

func TestInspector_ScanMode(t *testing.T) {
	snap := mustNotation(t, "0: []; 1: [2]; 2: []")
	quiet := WithLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))

	full := New(quiet, WithTracer(noop.NewTracerProvider().Tracer("test"))).
		Inspect(context.Background(), SourceInline, snap)
	first := New(quiet, WithTracer(noop.NewTracerProvider().Tracer("test")),
		WithScanMode(partition.ScanStopAtFirstFailingSpecies)).
		Inspect(context.Background(), SourceInline, snap)

	assert.Equal(t, full.OK(), first.OK())
	assert.Len(t, full.Result.Violations, 3)
	assert.Len(t, first.Result.Violations, 1)
}

func TestInspector_FailingReporterKeepsVerdict(t *testing.T) {
	var buf bytes.Buffer
	broken := partition.ReporterFunc(func(partition.Violation) error { panic("sink down") })
	insp := New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))), WithReporter(broken))

	report := insp.Inspect(context.Background(), SourceInline, mustNotation(t, "0: [1]"))

	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Result.ReportFailures)
	lines := logLines(t, &buf)
	assert.EqualValues(t, 1, lines[len(lines)-1]["report_failures"])
}

func TestInspector_DefaultsUseGlobalLoggerAndTracer(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	report := New().Inspect(context.Background(), SourceInline, mustNotation(t, ""))

	assert.True(t, report.OK())
	assert.True(t, report.AllEmpty)
	assert.True(t, report.AllPopulated)
	assert.Contains(t, buf.String(), "partition consistent")
}

func TestInspector_InspectFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "gen-1.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`format_version: "1.0.0"
generation: 1
species:
  - index: 0
    genomes:
      - species_index: 0
`), 0o600))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	insp := New(WithLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))), WithMetrics(metrics))

	report, err := insp.InspectFile(context.Background(), good)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, good, report.Source)
	assert.Equal(t, 1, report.Generation)
	assert.Equal(t, 1, report.Genomes)
	assert.Empty(t, report.Notation, "files have no inline form")

	_, err = insp.InspectFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	errutil.AssertErrorCode(t, err, snapshot.CodeRead)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotLoadFailures.WithLabelValues(snapshot.CodeRead)), 0)
}

func TestInspector_InspectNotation(t *testing.T) {
	insp := New(WithLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))))

	report, err := insp.InspectNotation(context.Background(), " 3: [3, 3];\n 4: [] ")
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, SourceInline, report.Source)
	assert.Equal(t, 2, report.Species)
	assert.Equal(t, 2, report.Genomes)
	assert.Equal(t, "3: [3 3]; 4: []", report.Notation)

	_, err = insp.InspectNotation(context.Background(), "3: [")
	errutil.AssertErrorCode(t, err, snapshot.CodeNotation)
}
