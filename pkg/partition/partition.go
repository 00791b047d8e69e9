// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package partition

import "fmt"

// Genome is the capability the verifier needs from a genome: the index of
// the species that currently owns it. The speciation strategy maintains this
// value; the verifier only reads it.
type Genome interface {
	SpeciesIndex() int
}

// Species is one group of a partition.
type Species[G Genome] struct {
	// Index identifies the species for the current generation.
	Index int
	// Members are the genomes assigned to this species. Order is not
	// significant. A nil slice is an empty species.
	Members []G
}

// Len returns the number of members.
func (s *Species[G]) Len() int {
	return len(s.Members)
}

// AllEmpty returns true if no species has any members. An empty list is
// vacuously all empty.
func AllEmpty[G Genome](species []*Species[G]) bool {
	for i, s := range species {
		mustSpecies(s, i)
		if s.Len() != 0 {
			return false
		}
	}
	return true
}

// AllPopulated returns true if every species has at least one member. An
// empty list is vacuously all populated.
func AllPopulated[G Genome](species []*Species[G]) bool {
	for i, s := range species {
		mustSpecies(s, i)
		if s.Len() == 0 {
			return false
		}
	}
	return true
}

// CheckIntegrity returns true if every species has at least one member and
// every member's species index equals the index of the species holding it.
// Violations go to the reporter configured with [WithReporter].
func CheckIntegrity[G Genome](species []*Species[G], opts ...Option) bool {
	return Inspect(species, opts...).OK
}

// Result is the outcome of [Inspect].
type Result struct {
	// OK is false once any violation has been seen.
	OK bool
	// Violations in traversal order: species list order, then member order.
	Violations []Violation
	// SpeciesScanned is how many species were visited before the scan ended.
	SpeciesScanned int
	// GenomesScanned is how many members were compared before the scan ended.
	GenomesScanned int
	// ReportFailures counts reporter calls that returned an error or panicked.
	ReportFailures int
}

// Inspect runs the integrity check and returns every violation found along
// with scan statistics.
func Inspect[G Genome](species []*Species[G], opts ...Option) Result {
	cfg := newOptions(opts)
	res := Result{OK: true}

	for i, s := range species {
		mustSpecies(s, i)
		res.SpeciesScanned++

		if s.Len() == 0 {
			res.record(cfg.reporter, emptySpecies(s.Index))
			if cfg.mode == ScanStopAtFirstFailingSpecies {
				return res
			}
			continue
		}

		for pos, g := range s.Members {
			res.GenomesScanned++
			if got := g.SpeciesIndex(); got != s.Index {
				res.record(cfg.reporter, indexMismatch(s.Index, pos, got))
				if cfg.mode == ScanStopAtFirstFailingSpecies {
					return res
				}
			}
		}
	}
	return res
}

func (r *Result) record(rep Reporter, v Violation) {
	r.OK = false
	r.Violations = append(r.Violations, v)
	if err := deliver(rep, v); err != nil {
		r.ReportFailures++
	}
}

// mustSpecies panics on a nil species pointer. A nil entry is a caller bug,
// not a partition state the verifier can judge.
func mustSpecies[G Genome](s *Species[G], pos int) {
	if s == nil {
		panic(fmt.Sprintf("partition: nil species at list position %d", pos))
	}
}
