// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package partition verifies the integrity of a species partition produced by
// a speciation strategy.
//
// A population manager groups genomes into species once per generation and
// then mutates that grouping through selection, reproduction, migration and
// pruning. This package is the read-only check run after each of those phases:
//
//   - [AllEmpty] reports whether every species has zero members.
//   - [AllPopulated] reports whether every species has at least one member.
//   - [CheckIntegrity] reports whether every species is populated and every
//     member's recorded species index matches the species holding it.
//
// The verifier never mutates the partition and keeps no state between calls.
//
// # Genome Representations
//
// Any type with a SpeciesIndex method satisfies [Genome], so the verifier
// works over every genome encoding a population manager uses:
//
//	type neuralGenome struct {
//	    speciesIdx int
//	    // ...
//	}
//
//	func (g *neuralGenome) SpeciesIndex() int { return g.speciesIdx }
//
//	species := []*partition.Species[*neuralGenome]{...}
//	ok := partition.CheckIntegrity(species)
//
// # Diagnostics
//
// Violations are delivered to an injected [Reporter] rather than a global
// sink. [Inspect] additionally returns every violation it saw as a
// [Violation] slice. Reporters are best-effort: an error or panic from a
// reporter is counted in [Result.ReportFailures] and never changes the
// verdict.
//
//	collector := &partition.Collector{}
//	ok := partition.CheckIntegrity(species,
//	    partition.WithReporter(partition.MultiReporter(
//	        partition.NewLogReporter(slog.Default()),
//	        collector,
//	    )),
//	)
//
// # Scan Modes
//
// [ScanFull] (the default) visits every species and reports every violation.
// [ScanStopAtFirstFailingSpecies] stops after the first species that fails,
// which is cheaper on large broken partitions but hides later violations.
// Both modes return the same verdict.
package partition
