// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package partition_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/niche/pkg/partition"
)

var _ = Describe("Partition verification", func() {
	type verdicts struct {
		empty, populated, integrity bool
	}

	evaluate := func(p []*partition.Species[genome]) verdicts {
		return verdicts{
			empty:     partition.AllEmpty(p),
			populated: partition.AllPopulated(p),
			integrity: partition.CheckIntegrity(p),
		}
	}

	DescribeTable("verdicts for canonical partitions",
		func(p []*partition.Species[genome], want verdicts) {
			Expect(evaluate(p)).To(Equal(want))
		},
		Entry("no species", list(),
			verdicts{empty: true, populated: true, integrity: true}),
		Entry("a single empty species", list(species(0)),
			verdicts{empty: true, populated: false, integrity: false}),
		Entry("two consistent species", list(species(0, 0), species(1, 1)),
			verdicts{empty: false, populated: true, integrity: true}),
		Entry("a member with a mismatched index", list(species(0, 1)),
			verdicts{empty: false, populated: true, integrity: false}),
		Entry("one empty and one consistent species", list(species(0), species(1, 1)),
			verdicts{empty: false, populated: false, integrity: false}),
	)

	Describe("empty and populated together", func() {
		It("holds only for a partition with no species", func() {
			Expect(partition.AllEmpty(list()) && partition.AllPopulated(list())).To(BeTrue())

			for _, p := range [][]*partition.Species[genome]{
				list(species(0)),
				list(species(0, 0)),
				list(species(0), species(1, 1)),
				list(species(0), species(1), species(2)),
			} {
				Expect(partition.AllEmpty(p) && partition.AllPopulated(p)).To(BeFalse())
			}
		})
	})

	Describe("integrity", func() {
		It("equals populated-and-consistent for generated partitions", func() {
			// Walk every partition of up to three species with up to two
			// members, each member recording an index in [0, 3).
			shapes := [][]int{{}, {0}, {1}, {2}, {0, 0}, {0, 1}, {1, 1}, {2, 0}}
			for _, a := range shapes {
				for _, b := range shapes {
					for _, c := range shapes {
						p := list(species(0, a...), species(1, b...), species(2, c...))

						consistent := true
						for _, s := range p {
							for _, g := range s.Members {
								if g.SpeciesIndex() != s.Index {
									consistent = false
								}
							}
						}
						want := partition.AllPopulated(p) && consistent

						Expect(partition.CheckIntegrity(p)).To(Equal(want), "partition %v %v %v", a, b, c)
					}
				}
			}
		})

		It("reports the offending species and genome", func() {
			collector := &partition.Collector{}
			Expect(partition.CheckIntegrity(list(species(0, 1)), partition.WithReporter(collector))).To(BeFalse())

			Expect(collector.Violations()).To(ConsistOf(
				partition.Violation{
					Kind:          partition.KindIndexMismatch,
					SpeciesIndex:  0,
					Position:      0,
					RecordedIndex: 1,
					Message:       partition.MessageIndexMismatch,
				},
			))
		})

		It("returns the same answer every time", func() {
			p := list(species(0, 0), species(1), species(2, 3))
			first := partition.Inspect(p)
			for i := 0; i < 5; i++ {
				Expect(partition.Inspect(p)).To(Equal(first))
			}
		})
	})
})
