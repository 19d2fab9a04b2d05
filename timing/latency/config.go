package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the execution latency, in cycles, for each opcode.
// Values match spec.md §4.D/§4.E exactly.
type TimingConfig struct {
	// AddLatency is ADD's execute-stage duration. Default: 2 cycles.
	AddLatency uint64 `json:"add_latency"`

	// SubLatency is SUB's execute-stage duration. Default: 2 cycles.
	SubLatency uint64 `json:"sub_latency"`

	// MulLatency is MUL's execute-stage duration. Default: 4 cycles.
	MulLatency uint64 `json:"mul_latency"`

	// DivLatency is DIV's execute-stage duration. Default: 6 cycles.
	DivLatency uint64 `json:"div_latency"`

	// BranchLatency is BEQ's execute-stage duration. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is LW's memory-stage duration. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is SW's address/data staging duration before commit.
	// Default: 2 cycles.
	StoreLatency uint64 `json:"store_latency"`
}

// DefaultTimingConfig returns the spec's default latency table.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		AddLatency:    2,
		SubLatency:    2,
		MulLatency:    4,
		DivLatency:    6,
		BranchLatency: 1,
		LoadLatency:   3,
		StoreLatency:  2,
	}
}

// LoadConfig loads a TimingConfig from a JSON file.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency is positive.
func (c *TimingConfig) Validate() error {
	fields := map[string]uint64{
		"add_latency":    c.AddLatency,
		"sub_latency":    c.SubLatency,
		"mul_latency":    c.MulLatency,
		"div_latency":    c.DivLatency,
		"branch_latency": c.BranchLatency,
		"load_latency":   c.LoadLatency,
		"store_latency":  c.StoreLatency,
	}
	for name, v := range fields {
		if v == 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
