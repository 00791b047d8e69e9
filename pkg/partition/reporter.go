// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Reporter receives violations as the integrity check finds them.
// Errors are counted by the caller but never change the verdict.
type Reporter interface {
	Report(v Violation) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(v Violation) error

// Report calls f(v).
func (f ReporterFunc) Report(v Violation) error {
	return f(v)
}

type discard struct{}

func (discard) Report(Violation) error { return nil }

// Discard drops every violation.
var Discard Reporter = discard{}

// Collector keeps every violation it receives. It is safe for concurrent use
// so one collector can be shared by checks running on different partitions.
type Collector struct {
	mu         sync.Mutex
	violations []Violation
}

// Report appends v.
func (c *Collector) Report(v Violation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations = append(c.violations, v)
	return nil
}

// Violations returns a copy of the collected violations.
func (c *Collector) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Violation, len(c.violations))
	copy(out, c.violations)
	return out
}

// Reset forgets all collected violations.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations = nil
}

// LogReporter writes each violation as a structured warning.
type LogReporter struct {
	logger *slog.Logger
	ctx    context.Context
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger, ctx: context.Background()}
}

// WithContext returns a copy that logs with ctx, so handlers can attach
// trace context to each violation.
func (r *LogReporter) WithContext(ctx context.Context) *LogReporter {
	return &LogReporter{logger: r.logger, ctx: ctx}
}

// Report logs v at warn level.
func (r *LogReporter) Report(v Violation) error {
	attrs := []any{
		"kind", string(v.Kind),
		"species_index", v.SpeciesIndex,
	}
	if v.Kind == KindIndexMismatch {
		attrs = append(attrs,
			"recorded_index", v.RecordedIndex,
			"position", v.Position,
		)
	}
	r.logger.Log(r.ctx, slog.LevelWarn, v.Message, attrs...)
	return nil
}

type multiReporter []Reporter

// MultiReporter delivers each violation to every reporter in order. Every
// reporter is called even if an earlier one fails; the failures are joined.
func MultiReporter(reporters ...Reporter) Reporter {
	out := make(multiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiReporter) Report(v Violation) error {
	var errs []error
	for _, r := range m {
		if err := deliver(r, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver calls r.Report and turns a panic into an error.
func deliver(r Reporter, v Violation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reporter panicked: %v", p)
		}
	}()
	return r.Report(v)
}
