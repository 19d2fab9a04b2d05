// Package rs implements the reservation stations that hold issued
// arithmetic and branch operations while they wait for operands and
// execute (spec.md §3, §4.D).
//
// Operand tracking is grounded on the bitmap/tag-wakeup scheme in
// Maemo32-SupraX_Legacy/SupraX.go's OutOfOrderScheduler: a station either
// holds a ready value or waits on the ROB id of its producer, and a
// snoop pass clears waiting tags as results are broadcast.
package rs

import (
	"math/bits"

	"github.com/archlab/tomasulo/insts"
)

// Capacity is the fixed number of reservation stations (spec.md §2).
const Capacity = 8

// Operand is the explicit Ready(value) | Waiting(robID) sum type called
// for in spec.md §9.
type Operand struct {
	Ready   bool
	Value   int64
	WaitROB int
}

// ReadyOperand builds an operand holding an already-known value.
func ReadyOperand(v int64) Operand {
	return Operand{Ready: true, Value: v}
}

// WaitingOperand builds an operand waiting on a ROB producer.
func WaitingOperand(robID int) Operand {
	return Operand{WaitROB: robID}
}

// Station is one reservation station slot.
type Station struct {
	Busy          bool
	Op            insts.Opcode
	RobID         int
	Vj, Vk        Operand
	Dispatched    bool
	ExecRemaining uint64
}

// ready reports whether both operands have resolved.
func (s Station) ready() bool {
	return s.Vj.Ready && s.Vk.Ready
}

// Drained is one finished station, ready for write-result or branch
// resolution to interpret. RS deliberately does not compute the
// arithmetic result itself — that stays in the scheduler, the same way
// the teacher's ExecuteStage (not the reservation-station bookkeeping)
// owns ALU semantics.
type Drained struct {
	StationID int
	RobID     int
	Op        insts.Opcode
	Vj, Vk    int64
}

// Stations holds the fixed-size reservation-station array.
type Stations struct {
	slots [Capacity]Station
	busy  uint8 // bitmap: bit i set = slots[i].Busy
}

// New creates an empty set of reservation stations.
func New() *Stations {
	return &Stations{}
}

// CanIssue reports whether a free station exists.
func (s *Stations) CanIssue() bool {
	return s.busy != 0xFF
}

// Issue allocates the lowest-id free station for a newly-issued
// instruction.
func (s *Stations) Issue(op insts.Opcode, robID int, vj, vk Operand) (int, bool) {
	if !s.CanIssue() {
		return 0, false
	}

	id := bits.TrailingZeros8(^s.busy)
	s.slots[id] = Station{Busy: true, Op: op, RobID: robID, Vj: vj, Vk: vk}
	s.busy |= 1 << uint(id)

	return id, true
}

// Snoop publishes a completed (robID, value) pair: any station waiting
// on robID for either operand has that operand resolved.
func (s *Stations) Snoop(robID int, value int64) {
	for i := range s.slots {
		if !s.slots[i].Busy {
			continue
		}
		if !s.slots[i].Vj.Ready && s.slots[i].Vj.WaitROB == robID {
			s.slots[i].Vj = ReadyOperand(value)
		}
		if !s.slots[i].Vk.Ready && s.slots[i].Vk.WaitROB == robID {
			s.slots[i].Vk = ReadyOperand(value)
		}
	}
}

// DispatchReady selects the lowest-id station whose operands are both
// ready and which has not yet begun executing, and starts it running for
// that station's op's latency (as reported by latencyFor). Returns false
// if nothing is eligible.
func (s *Stations) DispatchReady(latencyFor func(insts.Opcode) uint64) (int, bool) {
	for i := 0; i < Capacity; i++ {
		st := &s.slots[i]
		if st.Busy && !st.Dispatched && st.ready() {
			st.Dispatched = true
			st.ExecRemaining = latencyFor(st.Op)
			return i, true
		}
	}
	return 0, false
}

// AdvanceExecuting decrements the remaining latency of every dispatched
// station.
func (s *Stations) AdvanceExecuting() {
	for i := range s.slots {
		st := &s.slots[i]
		if st.Busy && st.Dispatched && st.ExecRemaining > 0 {
			st.ExecRemaining--
		}
	}
}

// DrainWritable returns every station matching keep whose latency has
// elapsed, lowest rob_id first (spec.md §4.H tie-break), and frees those
// stations. BEQ stations are drained separately by the scheduler's
// branch-resolve step rather than its write-result step, so callers
// pass a filter rather than always draining everything at once.
func (s *Stations) DrainWritable(keep func(insts.Opcode) bool) []Drained {
	var out []Drained

	for i := range s.slots {
		st := &s.slots[i]
		if st.Busy && st.Dispatched && st.ExecRemaining == 0 && keep(st.Op) {
			out = append(out, Drained{
				StationID: i,
				RobID:     st.RobID,
				Op:        st.Op,
				Vj:        st.Vj.Value,
				Vk:        st.Vk.Value,
			})
		}
	}

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].RobID < out[i].RobID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}

	for _, d := range out {
		s.free(d.StationID)
	}

	return out
}

func (s *Stations) free(id int) {
	s.slots[id] = Station{}
	s.busy &^= 1 << uint(id)
}

// FreeByRobID drops every station whose rob_id is in the given set,
// used when a misprediction flush discards younger entries.
func (s *Stations) FreeByRobID(robIDs map[int]bool) {
	for i := range s.slots {
		if s.slots[i].Busy && robIDs[s.slots[i].RobID] {
			s.free(i)
		}
	}
}

// Station returns a copy of the station at id, for inspection.
func (s *Stations) Station(id int) Station {
	return s.slots[id]
}

// BusyCount returns the number of occupied stations.
func (s *Stations) BusyCount() int {
	return bits.OnesCount8(s.busy)
}

// Reset clears all stations.
func (s *Stations) Reset() {
	*s = Stations{}
}
