// Package checkpoint implements the speculative-state checkpoint queue
// taken at the issue of each branch, used to roll back the RAT and
// discard speculative entries on misprediction (spec.md §4.G).
package checkpoint

import (
	"github.com/archlab/tomasulo/emu"
	"github.com/archlab/tomasulo/timing/rat"
)

// Checkpoint captures everything needed to undo the speculation opened
// by one in-flight branch.
type Checkpoint struct {
	BranchRobID        int
	PredictedDirection bool
	SpeculatedNextPC   int
	RATSnapshot        [emu.NumRegisters]rat.Slot
	FetchPCBefore      int
}

// Queue holds live checkpoints in program order: index 0 is the
// oldest-unresolved branch.
type Queue struct {
	entries []Checkpoint
}

// New creates an empty checkpoint queue.
func New() *Queue {
	return &Queue{}
}

// Push records a new checkpoint for a just-issued branch. It becomes the
// youngest live checkpoint.
func (q *Queue) Push(c Checkpoint) {
	q.entries = append(q.entries, c)
}

// Live reports whether any checkpoint is currently outstanding —
// equivalently, whether newly issued entries must be marked speculative
// (spec.md §4.G).
func (q *Queue) Live() bool {
	return len(q.entries) > 0
}

// Oldest returns the oldest-unresolved checkpoint, if any.
func (q *Queue) Oldest() (Checkpoint, bool) {
	if len(q.entries) == 0 {
		return Checkpoint{}, false
	}
	return q.entries[0], true
}

// Find returns the checkpoint for branchRobID without removing it.
func (q *Queue) Find(branchRobID int) (Checkpoint, bool) {
	for _, c := range q.entries {
		if c.BranchRobID == branchRobID {
			return c, true
		}
	}
	return Checkpoint{}, false
}

// NextAfter returns the checkpoint immediately younger than branchRobID's,
// if one is still live — the boundary up to which a correct resolution
// promotes speculative entries (spec.md §4.H).
func (q *Queue) NextAfter(branchRobID int) (int, bool) {
	for i, c := range q.entries {
		if c.BranchRobID == branchRobID {
			if i+1 < len(q.entries) {
				return q.entries[i+1].BranchRobID, true
			}
			return 0, false
		}
	}
	return 0, false
}

// Remove discards the checkpoint for branchRobID, wherever it sits in
// the queue, preserving the order of the rest.
func (q *Queue) Remove(branchRobID int) bool {
	for i, c := range q.entries {
		if c.BranchRobID == branchRobID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// FlushFrom discards the checkpoint for branchRobID and every checkpoint
// younger than it (nested branches opened after the mispredicted one),
// per spec.md §4.H: "Discard all checkpoints at or after this branch."
func (q *Queue) FlushFrom(branchRobID int) {
	for i, c := range q.entries {
		if c.BranchRobID == branchRobID {
			q.entries = q.entries[:i]
			return
		}
	}
}

// Len reports the number of live checkpoints.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Reset clears the queue.
func (q *Queue) Reset() {
	q.entries = nil
}
