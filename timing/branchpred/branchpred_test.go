package branchpred_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archlab/tomasulo/timing/branchpred"
)

var _ = Describe("Predictor", func() {
	var p *branchpred.Predictor

	BeforeEach(func() {
		p = branchpred.New()
	})

	It("defaults to not-taken for an unseen branch", func() {
		Expect(p.Predict(3)).To(BeFalse())
	})

	It("learns the last observed direction", func() {
		p.Update(3, true)
		Expect(p.Predict(3)).To(BeTrue())

		p.Update(3, false)
		Expect(p.Predict(3)).To(BeFalse())
	})

	It("tracks each branch independently by instruction index", func() {
		p.Update(1, true)
		Expect(p.Predict(2)).To(BeFalse())
	})

	It("Reset forgets all history", func() {
		p.Update(1, true)
		p.Reset()
		Expect(p.Predict(1)).To(BeFalse())
	})
})
