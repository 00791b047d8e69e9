// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package partition

import "fmt"

// ScanMode controls how far the integrity check scans after a violation.
type ScanMode int

const (
	// ScanFull visits every species and member and reports every violation.
	ScanFull ScanMode = iota
	// ScanStopAtFirstFailingSpecies ends the scan at the first violation,
	// so later species are never visited.
	ScanStopAtFirstFailingSpecies
)

// String returns the configuration name of the mode.
func (m ScanMode) String() string {
	switch m {
	case ScanFull:
		return "full"
	case ScanStopAtFirstFailingSpecies:
		return "first-failing"
	default:
		return fmt.Sprintf("ScanMode(%d)", int(m))
	}
}

// ParseScanMode maps a configuration name to a ScanMode.
func ParseScanMode(name string) (ScanMode, error) {
	switch name {
	case "", "full":
		return ScanFull, nil
	case "first-failing":
		return ScanStopAtFirstFailingSpecies, nil
	default:
		return ScanFull, fmt.Errorf("unknown scan mode %q (want \"full\" or \"first-failing\")", name)
	}
}

type options struct {
	reporter Reporter
	mode     ScanMode
}

// Option configures an integrity check.
type Option func(*options)

// WithReporter sets where violations are delivered. A nil reporter discards.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithScanMode sets the scan mode. The default is ScanFull.
func WithScanMode(m ScanMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

func newOptions(opts []Option) options {
	o := options{reporter: Discard, mode: ScanFull}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = Discard
	}
	return o
}
