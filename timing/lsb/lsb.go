// Package lsb implements the load/store buffer: the unified, in-order
// structure that holds issued loads and stores until their address and
// (for stores) value are known, and that enforces memory ordering
// against older, still-unresolved stores (spec.md §3, §4.E).
package lsb

// Capacity is the fixed number of load/store buffer entries (spec.md §2).
const Capacity = 8

// AddrOperand is the explicit Ready(value) | Waiting(robID) sum type for
// the address-producing operand (spec.md §9).
type AddrOperand struct {
	Ready   bool
	Value   int64
	WaitROB int
}

// ReadyAddr builds an already-resolved address base.
func ReadyAddr(v int64) AddrOperand {
	return AddrOperand{Ready: true, Value: v}
}

// WaitingAddr builds an address operand waiting on a ROB producer.
func WaitingAddr(robID int) AddrOperand {
	return AddrOperand{WaitROB: robID}
}

// ValueOperand mirrors AddrOperand for a store's value-to-be-written.
type ValueOperand struct {
	Ready   bool
	Value   int64
	WaitROB int
}

// ReadyValue builds an already-resolved store value.
func ReadyValue(v int64) ValueOperand {
	return ValueOperand{Ready: true, Value: v}
}

// WaitingValue builds a store-value operand waiting on a ROB producer.
func WaitingValue(robID int) ValueOperand {
	return ValueOperand{WaitROB: robID}
}

// Entry is one load/store buffer slot; Store discriminates its kind.
type Entry struct {
	Busy       bool
	Store      bool
	RobID      int
	SeqNum     int // program-order sequence number, for hazard checks
	Base       AddrOperand
	Offset     int64
	Addr       int64 // filled in at dispatch, once Base.Ready
	AddrKnown  bool
	Value      ValueOperand // stores only
	Dispatched bool
	ExecRemaining uint64
}

func (e Entry) addrReady() bool {
	return e.Base.Ready
}

func (e Entry) operandsReady() bool {
	if !e.addrReady() {
		return false
	}
	if e.Store {
		return e.Value.Ready
	}
	return true
}

func (e Entry) resolvedAddr() int64 {
	return e.Base.Value + e.Offset
}

// Drained is a finished load or store, ready for write-result.
type Drained struct {
	RobID   int
	Store   bool
	Addr    int64
	Value   int64 // for stores: value to write; for loads: value read from memory
}

// Buffer holds the fixed-size load/store buffer in program order.
type Buffer struct {
	entries [Capacity]Entry
	nextSeq int
}

// New creates an empty load/store buffer.
func New() *Buffer {
	return &Buffer{}
}

// CanIssue reports whether a free entry exists.
func (b *Buffer) CanIssue() bool {
	for i := range b.entries {
		if !b.entries[i].Busy {
			return true
		}
	}
	return false
}

// IssueLoad allocates an entry for a load.
func (b *Buffer) IssueLoad(robID int, base AddrOperand, offset int64) (int, bool) {
	return b.issue(Entry{Store: false, RobID: robID, Base: base, Offset: offset})
}

// IssueStore allocates an entry for a store.
func (b *Buffer) IssueStore(robID int, base AddrOperand, offset int64, value ValueOperand) (int, bool) {
	return b.issue(Entry{Store: true, RobID: robID, Base: base, Offset: offset, Value: value})
}

func (b *Buffer) issue(e Entry) (int, bool) {
	for i := range b.entries {
		if !b.entries[i].Busy {
			e.Busy = true
			e.SeqNum = b.nextSeq
			b.nextSeq++
			b.entries[i] = e
			return i, true
		}
	}
	return 0, false
}

// Snoop resolves any base-address or store-value operand waiting on robID.
func (b *Buffer) Snoop(robID int, value int64) {
	for i := range b.entries {
		e := &b.entries[i]
		if !e.Busy {
			continue
		}
		if !e.Base.Ready && e.Base.WaitROB == robID {
			e.Base = ReadyAddr(value)
		}
		if e.Store && !e.Value.Ready && e.Value.WaitROB == robID {
			e.Value = ReadyValue(value)
		}
	}
}

// olderUnresolvedStoreBlocks reports whether a load at seqNum must wait
// because an older store (lower seqNum) has not yet resolved its address:
// the load cannot be proven independent of it (spec.md §4.E store-hazard
// rule).
func (b *Buffer) olderUnresolvedStoreBlocks(seqNum int) bool {
	for i := range b.entries {
		e := &b.entries[i]
		if e.Busy && e.Store && e.SeqNum < seqNum && !e.addrReady() {
			return true
		}
	}
	return false
}

// olderMatchingStoreBlocks reports whether a load at (seqNum, addr) must
// wait on an older store to the same address that has not yet committed
// its value (it would otherwise read stale memory).
func (b *Buffer) olderMatchingStoreBlocks(seqNum int, addr int64) bool {
	for i := range b.entries {
		e := &b.entries[i]
		if e.Busy && e.Store && e.SeqNum < seqNum && e.addrReady() && e.resolvedAddr() == addr {
			return true
		}
	}
	return false
}

// DispatchReady selects the lowest-sequence-number entry eligible to
// begin its memory access this cycle and marks it dispatched, using
// loadLatency or storeLatency depending on the entry's kind.
func (b *Buffer) DispatchReady(loadLatency, storeLatency uint64) (int, bool) {
	bestIdx := -1
	bestSeq := int(^uint(0) >> 1)

	for i := range b.entries {
		e := &b.entries[i]
		if !e.Busy || e.Dispatched || !e.operandsReady() {
			continue
		}
		if !e.Store {
			if b.olderUnresolvedStoreBlocks(e.SeqNum) {
				continue
			}
			if b.olderMatchingStoreBlocks(e.SeqNum, e.resolvedAddr()) {
				continue
			}
		}
		if e.SeqNum < bestSeq {
			bestSeq = e.SeqNum
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return 0, false
	}

	e := &b.entries[bestIdx]
	e.Addr = e.resolvedAddr()
	e.AddrKnown = true
	e.Dispatched = true
	if e.Store {
		e.ExecRemaining = storeLatency
	} else {
		e.ExecRemaining = loadLatency
	}
	return bestIdx, true
}

// AdvanceExecuting decrements the remaining latency of every dispatched entry.
func (b *Buffer) AdvanceExecuting() {
	for i := range b.entries {
		e := &b.entries[i]
		if e.Busy && e.Dispatched && e.ExecRemaining > 0 {
			e.ExecRemaining--
		}
	}
}

// DrainWritable returns every entry whose memory latency has elapsed.
// Loads are freed immediately (their result, once read, is final).
// Stores are kept busy (AddrKnown, not Dispatched) until Commit writes
// them back and removes them, preserving program-order write visibility.
func (b *Buffer) DrainWritable(read func(addr int64) (int64, error)) ([]Drained, error) {
	var out []Drained

	for i := range b.entries {
		e := &b.entries[i]
		if !e.Busy || !e.Dispatched || e.ExecRemaining != 0 {
			continue
		}
		if e.Store {
			out = append(out, Drained{RobID: e.RobID, Store: true, Addr: e.Addr, Value: e.Value.Value})
			e.Dispatched = false // awaits commit; stays busy
			continue
		}
		v, err := read(e.Addr)
		if err != nil {
			return out, err
		}
		out = append(out, Drained{RobID: e.RobID, Store: false, Addr: e.Addr, Value: v})
		b.free(i)
	}

	return out, nil
}

// CommitStore finds the still-resident store entry for robID, invokes
// write to perform the architectural memory update, and frees the entry.
func (b *Buffer) CommitStore(robID int, write func(addr, value int64) error) error {
	for i := range b.entries {
		e := &b.entries[i]
		if e.Busy && e.Store && e.RobID == robID {
			if err := write(e.Addr, e.Value.Value); err != nil {
				return err
			}
			b.free(i)
			return nil
		}
	}
	return nil
}

func (b *Buffer) free(i int) {
	b.entries[i] = Entry{}
}

// FreeByRobID drops every entry whose rob_id is in the given set, used
// when a misprediction flush discards younger entries.
func (b *Buffer) FreeByRobID(robIDs map[int]bool) {
	for i := range b.entries {
		if b.entries[i].Busy && robIDs[b.entries[i].RobID] {
			b.free(i)
		}
	}
}

// Entry returns a copy of the entry at index i, for inspection.
func (b *Buffer) Entry(i int) Entry {
	return b.entries[i]
}

// Reset clears the buffer.
func (b *Buffer) Reset() {
	*b = Buffer{}
}
