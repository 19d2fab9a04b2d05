// Package rat implements the Register Alias Table: the mapping from an
// architectural register to its most recent in-flight producer, or to the
// architectural register file when no producer is pending (spec.md §3,
// §4.C).
package rat

import "github.com/archlab/tomasulo/emu"

// Slot is an explicit optional ROB id, per spec.md §9 ("RAT-slot →
// architectural | rob_id").
type Slot struct {
	FromROB bool
	ROBID   int
}

// Architectural is the sentinel meaning "the architectural register file
// is authoritative".
var Architectural = Slot{}

// Producer builds a slot pointing at a ROB id.
func Producer(robID int) Slot {
	return Slot{FromROB: true, ROBID: robID}
}

// RAT renames registers to eliminate WAR/WAW hazards.
type RAT struct {
	slots [emu.NumRegisters]Slot
}

// New creates a RAT with every register pointing at the architectural file.
func New() *RAT {
	return &RAT{}
}

// Read returns the current slot for reg. Register 0 always reads as
// architectural, matching the hardwired-zero register.
func (r *RAT) Read(reg uint8) Slot {
	if reg == 0 || int(reg) >= emu.NumRegisters {
		return Architectural
	}
	return r.slots[reg]
}

// Rename records robID as reg's producer. A no-op for register 0.
func (r *RAT) Rename(reg uint8, robID int) {
	if reg == 0 || int(reg) >= emu.NumRegisters {
		return
	}
	r.slots[reg] = Producer(robID)
}

// ClearIfPointsTo makes reg architectural again, but only if it still
// points at robID — a later renamer may already have overwritten it
// (spec.md §3 lifecycle: "clears RAT entry if still pointing here").
func (r *RAT) ClearIfPointsTo(reg uint8, robID int) {
	if reg == 0 || int(reg) >= emu.NumRegisters {
		return
	}
	if r.slots[reg].FromROB && r.slots[reg].ROBID == robID {
		r.slots[reg] = Architectural
	}
}

// Snapshot copies the full table, for checkpointing.
func (r *RAT) Snapshot() [emu.NumRegisters]Slot {
	return r.slots
}

// Restore replaces the table wholesale, for flush-on-misprediction.
func (r *RAT) Restore(snapshot [emu.NumRegisters]Slot) {
	r.slots = snapshot
}

// Reset returns every register to architectural.
func (r *RAT) Reset() {
	r.slots = [emu.NumRegisters]Slot{}
}
