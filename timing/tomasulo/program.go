package tomasulo

import "github.com/archlab/tomasulo/insts"

// DefaultProgramText is the 11-instruction fixture program referenced by
// spec.md §8, scenario S1. It exercises every opcode family: a RAW chain
// through ADD/SUB/MUL, a load feeding that chain, a store of the result,
// a division by zero (masked to 0 per spec.md §7), and a forward branch
// that the 1-bit predictor (defaulting to not-taken) mispredicts. The two
// instructions fetched along the wrong (not-taken) path are flushed;
// "ADD R8" is then fetched again from the branch target, so only
// "ADD R9" never commits. The branch is deliberately forward-only: a
// backward branch whose comparands never change would loop forever.
var DefaultProgramText = []string{
	"ADD R1, R0, R0",
	"ADD R2, R0, R0",
	"LW R3, 0(R0)",
	"ADD R4, R3, R1",
	"SUB R5, R4, R2",
	"MUL R6, R4, R5",
	"SW R6, 8(R0)",
	"DIV R7, R6, R1",
	"BEQ R1, R2, 40",
	"ADD R9, R0, R0",
	"ADD R8, R0, R0",
}

// DefaultProgram decodes DefaultProgramText. It panics on decode failure
// since the text above is a fixed, known-good fixture.
func DefaultProgram() []insts.Instruction {
	program, err := insts.NewDecoder().Decode(DefaultProgramText)
	if err != nil {
		panic("tomasulo: default program fixture failed to decode: " + err.Error())
	}
	return program
}
