// Package emu provides the architectural register file and memory backing
// the Tomasulo simulator's committed state.
package emu

// NumRegisters is the size of the unified register namespace (spec.md §3:
// "R0..R31 or F0..F31 share a single 32-entry namespace").
const NumRegisters = 32

// RegFile represents the architectural register file. Register 0 is
// hardwired to zero: reads return 0 and writes are silently ignored.
type RegFile struct {
	R [NumRegisters]int64
}

// ReadReg reads a register value. Register 0 always returns 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg == 0 || int(reg) >= NumRegisters {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg == 0 || int(reg) >= NumRegisters {
		return
	}
	r.R[reg] = value
}

// Reset zeros every architectural register.
func (r *RegFile) Reset() {
	for i := range r.R {
		r.R[i] = 0
	}
}

// Snapshot returns a copy of the register contents for read-only inspection.
func (r *RegFile) Snapshot() [NumRegisters]int64 {
	return r.R
}
