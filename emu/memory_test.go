package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archlab/tomasulo/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemoryWithSize(16)
	})

	It("is zero-initialized", func() {
		v, err := mem.ReadWord(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(0)))
	})

	It("writes and reads back a word", func() {
		Expect(mem.WriteWord(8, 42)).To(Succeed())
		v, err := mem.ReadWord(8)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(42)))
	})

	It("rejects an out-of-bounds address", func() {
		_, err := mem.ReadWord(int64(mem.Size()) * 8)
		Expect(err).To(HaveOccurred())
		var oob *emu.OutOfBoundsError
		Expect(err).To(BeAssignableToTypeOf(oob))
	})

	It("rejects a negative address", func() {
		_, err := mem.ReadWord(-8)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a misaligned address", func() {
		_, err := mem.ReadWord(3)
		Expect(err).To(HaveOccurred())
	})

	It("Reset zeros every word", func() {
		Expect(mem.WriteWord(0, 5)).To(Succeed())
		mem.Reset()
		v, _ := mem.ReadWord(0)
		Expect(v).To(Equal(int64(0)))
	})
})
