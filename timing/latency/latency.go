// Package latency provides the per-opcode execution latency table used by
// the reservation stations and load/store buffer (spec.md §4.D: "Latency
// table: ADD=2, SUB=2, MUL=4, DIV=6, BEQ=1"; §4.E: LW=3, SW=2).
package latency

import (
	"github.com/archlab/tomasulo/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with the spec's default values.
func NewTable() *Table {
	return &Table{config: DefaultTimingConfig()}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	if config == nil {
		config = DefaultTimingConfig()
	}
	return &Table{config: config}
}

// GetLatency returns the number of execute-stage cycles the opcode occupies
// once dispatched.
func (t *Table) GetLatency(op insts.Opcode) uint64 {
	switch op {
	case insts.OpADD:
		return t.config.AddLatency
	case insts.OpSUB:
		return t.config.SubLatency
	case insts.OpMUL:
		return t.config.MulLatency
	case insts.OpDIV:
		return t.config.DivLatency
	case insts.OpBEQ:
		return t.config.BranchLatency
	case insts.OpLW:
		return t.config.LoadLatency
	case insts.OpSW:
		return t.config.StoreLatency
	default:
		return 1
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
