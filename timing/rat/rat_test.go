package rat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archlab/tomasulo/timing/rat"
)

var _ = Describe("RAT", func() {
	var table *rat.RAT

	BeforeEach(func() {
		table = rat.New()
	})

	It("starts fully architectural", func() {
		Expect(table.Read(5)).To(Equal(rat.Architectural))
	})

	It("register 0 is always architectural", func() {
		table.Rename(0, 3)
		Expect(table.Read(0)).To(Equal(rat.Architectural))
	})

	It("renames a register to its producer", func() {
		table.Rename(4, 7)
		Expect(table.Read(4)).To(Equal(rat.Producer(7)))
	})

	It("a later rename overrides an earlier one (most recent producer wins)", func() {
		table.Rename(4, 7)
		table.Rename(4, 9)
		Expect(table.Read(4)).To(Equal(rat.Producer(9)))
	})

	Describe("ClearIfPointsTo", func() {
		It("clears a register still pointing at the given producer", func() {
			table.Rename(4, 7)
			table.ClearIfPointsTo(4, 7)
			Expect(table.Read(4)).To(Equal(rat.Architectural))
		})

		It("leaves a register alone if a newer producer already took over", func() {
			table.Rename(4, 7)
			table.Rename(4, 9)
			table.ClearIfPointsTo(4, 7)
			Expect(table.Read(4)).To(Equal(rat.Producer(9)))
		})
	})

	Describe("Snapshot/Restore", func() {
		It("round-trips the full table", func() {
			table.Rename(1, 2)
			table.Rename(3, 4)
			snap := table.Snapshot()

			table.Rename(1, 99)
			table.Restore(snap)

			Expect(table.Read(1)).To(Equal(rat.Producer(2)))
			Expect(table.Read(3)).To(Equal(rat.Producer(4)))
		})
	})

	It("Reset clears every mapping", func() {
		table.Rename(1, 2)
		table.Reset()
		Expect(table.Read(1)).To(Equal(rat.Architectural))
	})
})
