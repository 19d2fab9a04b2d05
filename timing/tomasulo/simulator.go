// Package tomasulo implements the per-cycle scheduler that drives the
// ROB, RAT, reservation stations, load/store buffer, branch predictor,
// and checkpoint queue through one coherent tick at a time (spec.md §2,
// §4.H).
package tomasulo

import (
	"github.com/archlab/tomasulo/emu"
	"github.com/archlab/tomasulo/insts"
	"github.com/archlab/tomasulo/timing/branchpred"
	"github.com/archlab/tomasulo/timing/checkpoint"
	"github.com/archlab/tomasulo/timing/latency"
	"github.com/archlab/tomasulo/timing/lsb"
	"github.com/archlab/tomasulo/timing/rat"
	"github.com/archlab/tomasulo/timing/rob"
	"github.com/archlab/tomasulo/timing/rs"
)

// RunState reports whether the simulator can still make progress.
type RunState uint8

// Run states returned by Tick, per spec.md §6's "enum {Running, Halted}".
const (
	Running RunState = iota
	Halted
)

// Simulator owns every piece of in-flight and architectural state for
// one program run. It is the sole mutator of that state; the only
// public entry points that change anything are LoadProgram, Reset,
// Tick, and SeedMemory (spec.md §9: "Global mutable state... single
// owned object").
type Simulator struct {
	config *Config

	program []insts.Instruction

	regs *emu.RegFile
	mem  *emu.Memory

	robBuf      *rob.ROB
	ratTbl      *rat.RAT
	stations    *rs.Stations
	lsbuf       *lsb.Buffer
	predictor   *branchpred.Predictor
	checkpoints *checkpoint.Queue
	latencyTbl  *latency.Table

	fetchPC int

	cycle          uint64
	committed      uint64
	stalls         uint64
	mispredictions uint64

	halted bool
	err    error

	// stageOf is cold display metadata, one entry per static instruction
	// index (spec.md §9: kept out of scheduling decisions).
	stageOf []rob.Stage
}

// New constructs a Simulator for the given program, with the default
// configuration unless overridden by opts.
func New(program []insts.Instruction, opts ...Option) *Simulator {
	s := &Simulator{config: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}

	s.program = program
	s.regs = &emu.RegFile{}
	s.mem = emu.NewMemoryWithSize(s.config.MemoryWords)
	s.robBuf = rob.New()
	s.ratTbl = rat.New()
	s.stations = rs.New()
	s.lsbuf = lsb.New()
	s.predictor = branchpred.New()
	s.checkpoints = checkpoint.New()
	s.latencyTbl = latency.NewTableWithConfig(s.config.Timing)
	s.stageOf = make([]rob.Stage, len(program))

	return s
}

// Reset zeros all structures but keeps the loaded program and the
// predictor's learned history (spec.md §6: "reset(): zeros all
// structures, keeps the loaded program").
func (s *Simulator) Reset() {
	s.regs.Reset()
	s.mem.Reset()
	s.robBuf.Reset()
	s.ratTbl.Reset()
	s.stations.Reset()
	s.lsbuf.Reset()
	s.checkpoints.Reset()

	s.fetchPC = 0
	s.cycle = 0
	s.committed = 0
	s.stalls = 0
	s.mispredictions = 0
	s.halted = false
	s.err = nil
	s.stageOf = make([]rob.Stage, len(s.program))
}

// LoadProgram replaces the program and fully resets the simulator. On a
// decode error the prior program is left intact (spec.md §7: "leaves
// prior program intact").
func (s *Simulator) LoadProgram(lines []string) error {
	program, err := insts.NewDecoder().Decode(lines)
	if err != nil {
		return err
	}

	s.program = program
	s.Reset()
	return nil
}

// Halted reports whether the simulator has reached a terminal state,
// either by finishing the program or by a fatal error.
func (s *Simulator) Halted() bool {
	return s.halted
}

// Err returns the fatal error that halted the simulator, if any.
func (s *Simulator) Err() error {
	return s.err
}

// finished reports the spec.md §4.H termination condition: fetch has run
// past the program and the ROB has fully drained.
func (s *Simulator) finished() bool {
	return s.fetchPC >= len(s.program) && s.robBuf.Empty()
}

// Tick advances the simulator by exactly one cycle, in the fixed stage
// order of spec.md §4.H: Commit, Write-Result, Execute, Issue, Branch
// Resolve. Once halted, Tick is a no-op.
func (s *Simulator) Tick() RunState {
	if s.halted {
		return Halted
	}

	s.doCommit()
	if s.err == nil {
		s.doWriteResult()
	}
	if s.err == nil {
		s.doExecute()
	}
	issued := false
	if s.err == nil {
		issued = s.doIssue()
	}
	if s.err == nil {
		s.doBranchResolve()
	}

	if !issued && s.err == nil {
		s.stalls++
	}

	s.cycle++

	if s.err != nil || s.finished() {
		s.halted = true
	}

	if s.halted {
		return Halted
	}
	return Running
}

// doCommit implements spec.md §4.H step 1.
func (s *Simulator) doCommit() {
	headID, ready := s.robBuf.HeadReady()
	if !ready {
		return
	}

	entry := s.robBuf.Entry(headID)

	switch entry.Kind {
	case rob.KindREG:
		s.regs.WriteReg(uint8(entry.Dest), entry.Value)
		s.ratTbl.ClearIfPointsTo(uint8(entry.Dest), headID)
	case rob.KindSTORE:
		if err := s.lsbuf.CommitStore(headID, s.mem.WriteWord); err != nil {
			s.err = err
			return
		}
	case rob.KindBRANCH:
		// Resolution already happened in a prior tick's branch-resolve
		// step; nothing architectural to do beyond retiring the slot.
	}

	s.robBuf.CommitHead()
	s.committed++
	s.setStage(entry.InstrIndex, rob.StageCommit)
}

// doWriteResult implements spec.md §4.H step 2: collect finished RS/LSB
// entries, broadcast each (rob_id, value) pair, and fold it into every
// waiter in a single pass.
func (s *Simulator) doWriteResult() {
	notBranch := func(op insts.Opcode) bool { return op != insts.OpBEQ }
	for _, d := range s.stations.DrainWritable(notBranch) {
		value, err := evalArith(d.Op, d.Vj, d.Vk)
		if err != nil {
			s.err = err
			return
		}
		s.broadcast(d.RobID, value)
		s.setStageForRobID(d.RobID, rob.StageWB)
	}

	lsbDrained, err := s.lsbuf.DrainWritable(s.mem.ReadWord)
	if err != nil {
		s.err = err
		return
	}
	for _, d := range lsbDrained {
		if d.Store {
			// Stores broadcast nothing on the CDB — they produce no
			// register value — but once staging latency elapses they are
			// commit-ready, so mark the ROB entry directly.
			s.robBuf.MarkReady(d.RobID, d.Value)
			s.setStageForRobID(d.RobID, rob.StageWB)
			continue
		}
		s.broadcast(d.RobID, d.Value)
		s.setStageForRobID(d.RobID, rob.StageWB)
	}
}

// broadcast publishes a completed result on the simulated CDB.
func (s *Simulator) broadcast(robID int, value int64) {
	s.stations.Snoop(robID, value)
	s.lsbuf.Snoop(robID, value)
	s.robBuf.MarkReady(robID, value)
}

// evalArith computes an ALU result. Division by zero is masked to 0 per
// spec.md §7, never a fatal error.
func evalArith(op insts.Opcode, vj, vk int64) (int64, error) {
	switch op {
	case insts.OpADD:
		return vj + vk, nil
	case insts.OpSUB:
		return vj - vk, nil
	case insts.OpMUL:
		return vj * vk, nil
	case insts.OpDIV:
		if vk == 0 {
			return 0, nil
		}
		return vj / vk, nil
	default:
		return 0, nil
	}
}

// doExecute implements spec.md §4.H step 3.
func (s *Simulator) doExecute() {
	s.stations.AdvanceExecuting()
	s.lsbuf.AdvanceExecuting()

	for {
		id, ok := s.stations.DispatchReady(s.latencyTbl.GetLatency)
		if !ok {
			break
		}
		st := s.stations.Station(id)
		s.setStageForRobID(st.RobID, rob.StageEX)
	}

	for {
		id, ok := s.lsbuf.DispatchReady(s.latencyTbl.GetLatency(insts.OpLW), s.latencyTbl.GetLatency(insts.OpSW))
		if !ok {
			break
		}
		e := s.lsbuf.Entry(id)
		s.setStageForRobID(e.RobID, rob.StageMEM)
	}
}

// doIssue implements spec.md §4.H step 4. Returns true if an instruction
// was issued this cycle.
func (s *Simulator) doIssue() bool {
	if s.fetchPC >= len(s.program) {
		return false
	}
	instr := s.program[s.fetchPC]

	switch {
	case instr.IsArithmetic():
		if !s.robBuf.CanIssue() || !s.stations.CanIssue() {
			return false
		}
		s.issueArithmetic(instr)
	case instr.Op == insts.OpLW:
		if !s.robBuf.CanIssue() || !s.lsbuf.CanIssue() {
			return false
		}
		s.issueLoad(instr)
	case instr.Op == insts.OpSW:
		if !s.robBuf.CanIssue() || !s.lsbuf.CanIssue() {
			return false
		}
		s.issueStore(instr)
	case instr.IsBranch():
		if !s.robBuf.CanIssue() || !s.stations.CanIssue() {
			return false
		}
		s.issueBranch(instr)
	default:
		return false
	}

	return true
}

// resolveSource reads reg through the RAT: architectural values resolve
// immediately, a still-busy producer resolves if already ready, and
// otherwise the caller must wait on its rob id (spec.md §4.D issue rule).
func (s *Simulator) resolveSource(reg uint8) (ready bool, value int64, waitROB int) {
	slot := s.ratTbl.Read(reg)
	if !slot.FromROB {
		return true, s.regs.ReadReg(reg), 0
	}
	entry := s.robBuf.Entry(slot.ROBID)
	if entry.Ready {
		return true, entry.Value, 0
	}
	return false, 0, slot.ROBID
}

func (s *Simulator) rsOperand(reg uint8) rs.Operand {
	ready, value, waitROB := s.resolveSource(reg)
	if ready {
		return rs.ReadyOperand(value)
	}
	return rs.WaitingOperand(waitROB)
}

func (s *Simulator) lsbAddrOperand(reg uint8) lsb.AddrOperand {
	ready, value, waitROB := s.resolveSource(reg)
	if ready {
		return lsb.ReadyAddr(value)
	}
	return lsb.WaitingAddr(waitROB)
}

func (s *Simulator) lsbValueOperand(reg uint8) lsb.ValueOperand {
	ready, value, waitROB := s.resolveSource(reg)
	if ready {
		return lsb.ReadyValue(value)
	}
	return lsb.WaitingValue(waitROB)
}

func (s *Simulator) issueArithmetic(instr insts.Instruction) {
	speculative := s.checkpoints.Live()
	robID := s.robBuf.Allocate(rob.KindREG, int64(instr.Dest.Reg), true, speculative, instr.Index)

	vj := s.rsOperand(instr.Src1.Reg)
	vk := s.rsOperand(instr.Src2.Reg)
	s.stations.Issue(instr.Op, robID, vj, vk)

	s.ratTbl.Rename(instr.Dest.Reg, robID)
	s.setStage(instr.Index, rob.StageID)
	s.fetchPC++
}

func (s *Simulator) issueLoad(instr insts.Instruction) {
	speculative := s.checkpoints.Live()
	robID := s.robBuf.Allocate(rob.KindREG, int64(instr.Dest.Reg), true, speculative, instr.Index)

	base := s.lsbAddrOperand(instr.Src1.Reg)
	s.lsbuf.IssueLoad(robID, base, instr.Immediate)

	s.ratTbl.Rename(instr.Dest.Reg, robID)
	s.setStage(instr.Index, rob.StageID)
	s.fetchPC++
}

func (s *Simulator) issueStore(instr insts.Instruction) {
	speculative := s.checkpoints.Live()
	robID := s.robBuf.Allocate(rob.KindSTORE, 0, false, speculative, instr.Index)

	base := s.lsbAddrOperand(instr.Src1.Reg)
	val := s.lsbValueOperand(instr.Src2.Reg)
	s.lsbuf.IssueStore(robID, base, instr.Immediate, val)

	// No RAT rename: SW has no destination register (spec.md §4.H).
	s.setStage(instr.Index, rob.StageID)
	s.fetchPC++
}

func (s *Simulator) issueBranch(instr insts.Instruction) {
	speculative := s.checkpoints.Live()
	robID := s.robBuf.Allocate(rob.KindBRANCH, 0, false, speculative, instr.Index)

	vj := s.rsOperand(instr.Src1.Reg)
	vk := s.rsOperand(instr.Src2.Reg)
	s.stations.Issue(insts.OpBEQ, robID, vj, vk)

	predicted := s.predictor.Predict(instr.Index)
	target := s.branchTarget(instr.Immediate)

	nextPC := s.fetchPC + 1
	if predicted {
		nextPC = target
	}

	s.checkpoints.Push(checkpoint.Checkpoint{
		BranchRobID:        robID,
		PredictedDirection: predicted,
		SpeculatedNextPC:   nextPC,
		RATSnapshot:        s.ratTbl.Snapshot(),
		FetchPCBefore:      s.fetchPC,
	})

	s.setStage(instr.Index, rob.StageID)
	s.fetchPC = nextPC
}

// branchTarget resolves Open Question 1 (spec.md §9, §6): by default, a
// target that is a multiple of 4 is divided by 4 (treated as a byte
// offset); otherwise it is taken as a direct instruction index.
func (s *Simulator) branchTarget(immediate int64) int {
	if s.config.BranchTargetDivideBy4IfMultiple && immediate%4 == 0 {
		return int(immediate / 4)
	}
	return int(immediate)
}

// doBranchResolve implements spec.md §4.H step 5. A BEQ resolves the
// same cycle its RS entry becomes writable: dispatched, with its branch
// latency elapsed. Branches resolve oldest first; after a correct
// resolution the next-oldest branch is checked again in the same cycle.
func (s *Simulator) doBranchResolve() {
	for robID, predicted, vj, vk, ok := s.nextResolvableBranch(); ok; robID, predicted, vj, vk, ok = s.nextResolvableBranch() {
		actual := vj == vk
		s.robBuf.MarkReady(robID, boolToInt64(actual))
		s.resolveBranch(robID, predicted, actual)
	}
}

// nextResolvableBranch looks only at the branch of the oldest live
// checkpoint: it reports that branch when its ROB entry is busy and not
// yet ready and its reservation station is writable — i.e. it is ready
// to be compared this cycle. Younger branches are never reported.
func (s *Simulator) nextResolvableBranch() (robID int, predicted bool, vj, vk int64, ok bool) {
	cp, found := s.checkpoints.Oldest()
	if !found {
		return 0, false, 0, 0, false
	}

	entry := s.robBuf.Entry(cp.BranchRobID)
	if !entry.Busy || entry.Ready {
		return 0, false, 0, 0, false
	}

	station, found := s.findStationForRobID(cp.BranchRobID)
	if !found {
		return 0, false, 0, 0, false
	}

	return cp.BranchRobID, cp.PredictedDirection, station.vj, station.vk, true
}

type resolvedOperands struct {
	vj, vk int64
}

// findStationForRobID scans the reservation stations for the BEQ station
// feeding robID and reports whether it is writable — dispatched and its
// one-cycle branch latency has elapsed (spec.md §4.H: "detectable
// because its RS entry is writable"), the same gate write-result uses
// for arithmetic ops.
func (s *Simulator) findStationForRobID(robID int) (resolvedOperands, bool) {
	for i := 0; i < rs.Capacity; i++ {
		st := s.stations.Station(i)
		if st.Busy && st.RobID == robID && st.Op == insts.OpBEQ {
			if st.Dispatched && st.ExecRemaining == 0 {
				return resolvedOperands{vj: st.Vj.Value, vk: st.Vk.Value}, true
			}
			return resolvedOperands{}, false
		}
	}
	return resolvedOperands{}, false
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// resolveBranch applies spec.md §4.H step 5's correct/mispredicted
// branches, and frees the station so it is not matched again.
func (s *Simulator) resolveBranch(robID int, predicted, actual bool) {
	s.freeStationForRobID(robID)

	if actual == predicted {
		next, hasNext := s.checkpoints.NextAfter(robID)
		s.robBuf.PromoteSpeculativeRange(robID, hasNext, next)
		s.checkpoints.Remove(robID)
		return
	}

	s.mispredictions++
	cp, _ := s.checkpoints.Find(robID)
	s.flush(robID, cp)
	s.predictor.Update(s.instrIndexForRobEntry(robID), actual)
	s.fetchPC = s.correctedTarget(cp, actual)
}

// correctedTarget computes the fetch target after a misprediction: the
// branch's speculated path was wrong, so resume on the other one. Since
// actual always differs from predicted here, an actual-taken resolution
// always follows a predicted-not-taken checkpoint, so the taken target
// must be recomputed from the branch instruction rather than read from
// SpeculatedNextPC (which holds the not-taken successor in that case).
func (s *Simulator) correctedTarget(cp checkpoint.Checkpoint, actual bool) int {
	if !actual {
		return cp.FetchPCBefore + 1
	}
	instr := s.program[cp.FetchPCBefore]
	return s.branchTarget(instr.Immediate)
}

func (s *Simulator) instrIndexForRobEntry(robID int) int {
	return s.robBuf.Entry(robID).InstrIndex
}

func (s *Simulator) freeStationForRobID(robID int) {
	s.stations.FreeByRobID(map[int]bool{robID: true})
}

// flush implements spec.md §4.H's flush procedure.
func (s *Simulator) flush(branchRobID int, cp checkpoint.Checkpoint) {
	freed := s.robBuf.FlushAfter(branchRobID)

	ids := make(map[int]bool, len(freed))
	for _, f := range freed {
		ids[f.ID] = true
		s.setStage(f.Entry.InstrIndex, rob.StageFlushed)
	}

	s.stations.FreeByRobID(ids)
	s.lsbuf.FreeByRobID(ids)
	s.ratTbl.Restore(cp.RATSnapshot)
	s.checkpoints.FlushFrom(branchRobID)
}

func (s *Simulator) setStage(instrIndex int, stage rob.Stage) {
	if instrIndex >= 0 && instrIndex < len(s.stageOf) {
		s.stageOf[instrIndex] = stage
	}
}

func (s *Simulator) setStageForRobID(robID int, stage rob.Stage) {
	s.setStage(s.robBuf.Entry(robID).InstrIndex, stage)
}

// Stats mirrors the metrics exposed by spec.md §6.
type Stats struct {
	Cycle             uint64
	Committed         uint64
	TotalInstructions int
	IPC               float64
	Stalls            uint64
	Mispredictions    uint64
}

// StatsSnapshot computes the current metrics.
func (s *Simulator) StatsSnapshot() Stats {
	stats := Stats{
		Cycle:             s.cycle,
		Committed:         s.committed,
		TotalInstructions: len(s.program),
		Stalls:            s.stalls,
		Mispredictions:    s.mispredictions,
	}
	if s.cycle > 0 {
		stats.IPC = float64(s.committed) / float64(s.cycle)
	}
	return stats
}

// Registers returns a read-only snapshot of the architectural registers.
func (s *Simulator) Registers() [emu.NumRegisters]int64 {
	return s.regs.Snapshot()
}

// Memory returns a read-only snapshot of architectural memory.
func (s *Simulator) Memory() []int64 {
	return s.mem.Snapshot()
}

// SeedMemory writes one word of architectural memory ahead of a run, for
// harness-provided preconditions (spec.md §8's scenarios that specify
// memory contents up front, e.g. "memory[0]=42").
func (s *Simulator) SeedMemory(address, value int64) error {
	return s.mem.WriteWord(address, value)
}

// FetchPC returns the current fetch pointer.
func (s *Simulator) FetchPC() int {
	return s.fetchPC
}

// DisplayStage returns the cold display stage for a static instruction
// index, for a viewer to render.
func (s *Simulator) DisplayStage(instrIndex int) rob.Stage {
	if instrIndex < 0 || instrIndex >= len(s.stageOf) {
		return rob.StageIF
	}
	return s.stageOf[instrIndex]
}
