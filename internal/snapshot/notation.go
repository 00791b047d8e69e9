// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package snapshot

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// notationLexer tokenizes inline partition notation.
var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "Punct", Pattern: `[:;\[\],]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// notation is the parsed form of an inline partition.
//
// Grammar: { species [";"] }
type notation struct {
	Species []*notationSpecies `parser:"( @@ ';'? )*"`
}

// notationSpecies matches: index ":" "[" { recorded_index [","] } "]"
type notationSpecies struct {
	Index   int   `parser:"@Int ':'"`
	Members []int `parser:"'[' ( @Int ','? )* ']'"`
}

var notationParser = participle.MustBuild[notation](
	participle.Lexer(notationLexer),
	participle.Elide("whitespace"),
)

// ParseNotation parses an inline partition such as "0: [0 0]; 1: [1]; 2: []".
// Each entry is a species index followed by the species index recorded on
// each of its member genomes. An empty expression is a partition with no
// species. The result carries the current format version and a fresh ID.
func ParseNotation(expr string) (*Snapshot, error) {
	if strings.TrimSpace(expr) == "" {
		return &Snapshot{FormatVersion: FormatVersion, ID: NewID(), Species: []SpeciesRecord{}}, nil
	}

	parsed, err := notationParser.ParseString("", expr)
	if err != nil {
		return nil, oops.Code(CodeNotation).With("expression", expr).Wrapf(err, "parsing partition notation")
	}

	snap := &Snapshot{
		FormatVersion: FormatVersion,
		ID:            NewID(),
		Species:       make([]SpeciesRecord, 0, len(parsed.Species)),
	}
	for _, sp := range parsed.Species {
		rec := SpeciesRecord{Index: sp.Index}
		for pos, recorded := range sp.Members {
			rec.Genomes = append(rec.Genomes, GenomeRecord{
				ID:         fmt.Sprintf("s%d/g%d", sp.Index, pos),
				SpeciesIdx: recorded,
			})
		}
		snap.Species = append(snap.Species, rec)
	}
	return snap, nil
}
