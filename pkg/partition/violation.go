// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package partition

import "fmt"

// ViolationKind identifies which partition invariant was broken.
type ViolationKind string

const (
	// KindEmptySpecies marks a species with no members.
	KindEmptySpecies ViolationKind = "empty_species"
	// KindIndexMismatch marks a member whose recorded species index differs
	// from the index of the species holding it.
	KindIndexMismatch ViolationKind = "index_mismatch"
)

// Diagnostic messages attached to violations.
const (
	MessageEmptySpecies  = "empty species — speciation must allocate at least one genome to each species"
	MessageIndexMismatch = "genome with incorrect species index"
)

// Violation describes one broken invariant.
type Violation struct {
	Kind ViolationKind `json:"kind"`
	// SpeciesIndex is the index of the species being scanned.
	SpeciesIndex int `json:"species_index"`
	// Position is the member's position within the species.
	// Always -1 for KindEmptySpecies.
	Position int `json:"position"`
	// RecordedIndex is the species index the member carries.
	// Only meaningful for KindIndexMismatch.
	RecordedIndex int    `json:"recorded_index"`
	Message       string `json:"message"`
}

func emptySpecies(speciesIdx int) Violation {
	return Violation{
		Kind:         KindEmptySpecies,
		SpeciesIndex: speciesIdx,
		Position:     -1,
		Message:      MessageEmptySpecies,
	}
}

func indexMismatch(speciesIdx, pos, recorded int) Violation {
	return Violation{
		Kind:          KindIndexMismatch,
		SpeciesIndex:  speciesIdx,
		Position:      pos,
		RecordedIndex: recorded,
		Message:       MessageIndexMismatch,
	}
}

// String formats the violation for humans.
func (v Violation) String() string {
	switch v.Kind {
	case KindEmptySpecies:
		return fmt.Sprintf("%s: species index [%d]", v.Message, v.SpeciesIndex)
	case KindIndexMismatch:
		return fmt.Sprintf("%s: recorded index [%d], parent species index [%d], position %d",
			v.Message, v.RecordedIndex, v.SpeciesIndex, v.Position)
	default:
		return fmt.Sprintf("%s: species index [%d]", v.Kind, v.SpeciesIndex)
	}
}
