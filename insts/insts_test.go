package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archlab/tomasulo/insts"
)

var _ = Describe("Instruction", func() {
	Describe("UsesSrc2", func() {
		It("is true for arithmetic and branch ops", func() {
			Expect(insts.Instruction{Op: insts.OpADD}.UsesSrc2()).To(BeTrue())
			Expect(insts.Instruction{Op: insts.OpBEQ}.UsesSrc2()).To(BeTrue())
		})

		It("is false for loads and stores", func() {
			Expect(insts.Instruction{Op: insts.OpLW}.UsesSrc2()).To(BeFalse())
			Expect(insts.Instruction{Op: insts.OpSW}.UsesSrc2()).To(BeFalse())
		})
	})

	Describe("Opcode.String", func() {
		It("round-trips the recognized mnemonics", func() {
			Expect(insts.OpADD.String()).To(Equal("ADD"))
			Expect(insts.OpBEQ.String()).To(Equal("BEQ"))
			Expect(insts.OpUnknown.String()).To(Equal("UNKNOWN"))
		})
	})

	Describe("Operand", func() {
		It("NoOperand is invalid", func() {
			Expect(insts.NoOperand.Valid).To(BeFalse())
		})

		It("Reg builds a present operand", func() {
			op := insts.Reg(5)
			Expect(op.Valid).To(BeTrue())
			Expect(op.Reg).To(Equal(uint8(5)))
		})
	})
})
