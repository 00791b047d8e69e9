// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package snapshot reads serialized species partitions.
//
// A population manager writes a snapshot after a mutation phase so the
// partition can be verified out of process. Snapshots are YAML (or JSON)
// documents validated against a JSON Schema generated from [Snapshot], and
// can also be written inline with a compact notation (see [ParseNotation]).
package snapshot

import (
	"fmt"
	"strings"

	"github.com/holomush/niche/pkg/partition"
)

// FormatVersion is the snapshot format version written by this package.
const FormatVersion = "1.0.0"

// Error codes returned by this package.
const (
	CodeRead     = "SNAPSHOT_READ"
	CodeSchema   = "SNAPSHOT_SCHEMA"
	CodeDecode   = "SNAPSHOT_DECODE"
	CodeVersion  = "SNAPSHOT_VERSION"
	CodeID       = "SNAPSHOT_ID"
	CodeNotation = "SNAPSHOT_NOTATION"
)

// Snapshot is the partition of one generation.
type Snapshot struct {
	FormatVersion string          `yaml:"format_version" json:"format_version" jsonschema:"description=Snapshot format version (semver)"`
	ID            string          `yaml:"id,omitempty" json:"id,omitempty" jsonschema:"description=ULID of this snapshot; assigned on load when absent,pattern=^[0-9A-HJKMNP-TV-Za-hjkmnp-tv-z]{26}$"`
	Generation    int             `yaml:"generation,omitempty" json:"generation,omitempty" jsonschema:"minimum=0,description=Generation number the partition belongs to"`
	Species       []SpeciesRecord `yaml:"species" json:"species" jsonschema:"description=Species in list order"`
}

// SpeciesRecord is one species of a snapshot.
type SpeciesRecord struct {
	Index   int            `yaml:"index" json:"index" jsonschema:"description=Species index for this generation"`
	Genomes []GenomeRecord `yaml:"genomes,omitempty" json:"genomes,omitempty" jsonschema:"description=Member genomes; omit for an empty species"`
}

// GenomeRecord is one member genome of a species.
type GenomeRecord struct {
	ID         string `yaml:"id,omitempty" json:"id,omitempty" jsonschema:"description=Genome identifier, free form"`
	SpeciesIdx int    `yaml:"species_index" json:"species_index" jsonschema:"description=Species index recorded on the genome"`
}

// SpeciesIndex implements partition.Genome.
func (g GenomeRecord) SpeciesIndex() int {
	return g.SpeciesIdx
}

// Partition converts the snapshot into the verifier's representation.
// The returned species share no memory with the snapshot.
func (s *Snapshot) Partition() []*partition.Species[GenomeRecord] {
	out := make([]*partition.Species[GenomeRecord], len(s.Species))
	for i, rec := range s.Species {
		members := make([]GenomeRecord, len(rec.Genomes))
		copy(members, rec.Genomes)
		out[i] = &partition.Species[GenomeRecord]{
			Index:   rec.Index,
			Members: members,
		}
	}
	return out
}

// GenomeCount returns the number of genomes across all species.
func (s *Snapshot) GenomeCount() int {
	n := 0
	for _, rec := range s.Species {
		n += len(rec.Genomes)
	}
	return n
}

// Notation renders the snapshot in inline notation, e.g. "0: [0 0]; 1: []".
func (s *Snapshot) Notation() string {
	parts := make([]string, len(s.Species))
	for i, rec := range s.Species {
		members := make([]string, len(rec.Genomes))
		for j, g := range rec.Genomes {
			members[j] = fmt.Sprint(g.SpeciesIdx)
		}
		parts[i] = fmt.Sprintf("%d: [%s]", rec.Index, strings.Join(members, " "))
	}
	return strings.Join(parts, "; ")
}
