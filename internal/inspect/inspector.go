// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package inspect runs partition verification on snapshots with logging,
// tracing and metrics attached.
package inspect

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/niche/internal/observability"
	"github.com/holomush/niche/internal/snapshot"
	"github.com/holomush/niche/pkg/errutil"
	"github.com/holomush/niche/pkg/partition"
)

const tracerName = "github.com/holomush/niche/internal/inspect"

// SourceInline is the Report.Source of a partition given in inline notation.
const SourceInline = "inline"

// Report is the outcome of verifying one snapshot. Notation is set only for
// partitions given inline and holds their canonical form.
type Report struct {
	Source       string           `json:"source"`
	SnapshotID   string           `json:"snapshot_id"`
	Generation   int              `json:"generation"`
	Species      int              `json:"species"`
	Genomes      int              `json:"genomes"`
	AllEmpty     bool             `json:"all_empty"`
	AllPopulated bool             `json:"all_populated"`
	Result       partition.Result `json:"result"`
	Duration     time.Duration    `json:"duration_ns"`
	Notation     string           `json:"notation,omitempty"`
}

// OK reports whether the partition passed the integrity check.
func (r Report) OK() bool {
	return r.Result.OK
}

// Inspector verifies snapshots.
type Inspector struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.Metrics
	mode     partition.ScanMode
	reporter partition.Reporter
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. Violations are logged as warnings through it.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithTracer sets the tracer used for verification spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(i *Inspector) {
		i.tracer = tracer
	}
}

// WithMetrics records verifications and violations in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Inspector) {
		i.metrics = m
	}
}

// WithScanMode sets the partition scan mode.
func WithScanMode(mode partition.ScanMode) Option {
	return func(i *Inspector) {
		i.mode = mode
	}
}

// WithReporter adds a reporter that receives every violation in addition to
// the log and metrics.
func WithReporter(r partition.Reporter) Option {
	return func(i *Inspector) {
		i.reporter = r
	}
}

// New creates an Inspector. Without options it logs to slog.Default(), traces
// with the global tracer provider and records no metrics.
func New(opts ...Option) *Inspector {
	i := &Inspector{mode: partition.ScanFull}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.tracer == nil {
		i.tracer = otel.Tracer(tracerName)
	}
	return i
}

// Inspect verifies snap. source names where the snapshot came from.
func (i *Inspector) Inspect(ctx context.Context, source string, snap *snapshot.Snapshot) Report {
	ctx, span := i.tracer.Start(ctx, "Inspector.Inspect",
		trace.WithAttributes(
			attribute.String("snapshot.source", source),
			attribute.String("snapshot.id", snap.ID),
			attribute.Int("snapshot.generation", snap.Generation),
			attribute.Int("partition.species", len(snap.Species)),
			attribute.Int("snapshot.genomes", snap.GenomeCount()),
		),
	)
	defer span.End()

	logger := i.logger.With(
		"source", source,
		"snapshot_id", snap.ID,
		"generation", snap.Generation,
	)

	reporters := []partition.Reporter{
		partition.NewLogReporter(logger).WithContext(ctx),
		spanReporter(span),
		i.reporter,
	}
	if i.metrics != nil {
		reporters = append(reporters, i.metrics.Reporter())
	}

	p := snap.Partition()
	start := time.Now()
	res := partition.Inspect(p,
		partition.WithReporter(partition.MultiReporter(reporters...)),
		partition.WithScanMode(i.mode),
	)
	elapsed := time.Since(start)

	report := Report{
		Source:       source,
		SnapshotID:   snap.ID,
		Generation:   snap.Generation,
		Species:      len(p),
		Genomes:      snap.GenomeCount(),
		AllEmpty:     partition.AllEmpty(p),
		AllPopulated: partition.AllPopulated(p),
		Result:       res,
		Duration:     elapsed,
	}

	if i.metrics != nil {
		i.metrics.ObserveResult(res, elapsed.Seconds())
	}

	span.SetAttributes(
		attribute.Bool("partition.ok", res.OK),
		attribute.Int("partition.violations", len(res.Violations)),
		attribute.Int("partition.genomes_scanned", res.GenomesScanned),
	)

	attrs := []any{
		"ok", res.OK,
		"species", report.Species,
		"genomes_scanned", res.GenomesScanned,
		"all_empty", report.AllEmpty,
		"all_populated", report.AllPopulated,
		"scan_mode", i.mode.String(),
	}
	if res.OK {
		span.SetStatus(codes.Ok, "")
		logger.InfoContext(ctx, "partition consistent", attrs...)
	} else {
		span.SetStatus(codes.Error, "partition integrity violated")
		attrs = append(attrs, "violations", len(res.Violations))
		if res.ReportFailures > 0 {
			attrs = append(attrs, "report_failures", res.ReportFailures)
		}
		logger.WarnContext(ctx, "partition integrity violated", attrs...)
	}

	return report
}

// InspectFile loads the snapshot at path and verifies it.
func (i *Inspector) InspectFile(ctx context.Context, path string) (Report, error) {
	snap, err := snapshot.Load(path)
	if err != nil {
		i.RecordLoadFailure(err)
		return Report{}, err
	}
	return i.Inspect(ctx, path, snap), nil
}

// RecordLoadFailure counts a snapshot that could not be loaded, labelled with
// the error code of err.
func (i *Inspector) RecordLoadFailure(err error) {
	if i.metrics != nil {
		i.metrics.RecordLoadFailure(errutil.Code(err))
	}
}

// InspectNotation parses an inline partition and verifies it.
func (i *Inspector) InspectNotation(ctx context.Context, expr string) (Report, error) {
	snap, err := snapshot.ParseNotation(expr)
	if err != nil {
		return Report{}, err
	}
	report := i.Inspect(ctx, SourceInline, snap)
	report.Notation = snap.Notation()
	return report, nil
}

// spanReporter records each violation as an event on span.
func spanReporter(span trace.Span) partition.Reporter {
	return partition.ReporterFunc(func(v partition.Violation) error {
		attrs := []attribute.KeyValue{
			attribute.String("violation.kind", string(v.Kind)),
			attribute.Int("violation.species_index", v.SpeciesIndex),
		}
		if v.Kind == partition.KindIndexMismatch {
			attrs = append(attrs,
				attribute.Int("violation.recorded_index", v.RecordedIndex),
				attribute.Int("violation.position", v.Position),
			)
		}
		span.AddEvent(v.Message, trace.WithAttributes(attrs...))
		return nil
	})
}
