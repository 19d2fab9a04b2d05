package emu

import "fmt"

// DefaultMemoryWords is the default memory size when none is configured
// (spec.md §6: "memory=user-sized (default 1024 words, zero-initialized)").
const DefaultMemoryWords = 1024

// OutOfBoundsError reports an access at a negative, misaligned, or
// past-the-end address. Per spec.md
// §7 this is fatal: the caller enters a terminal error state.
type OutOfBoundsError struct {
	Address int64
	Size    int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("memory access out of bounds: address %d (size %d words)", e.Address, e.Size)
}

// Memory is a flat, word-addressable integer array. Accesses are
// word-aligned and reached via offset + base register value, per spec.md
// §3. There is no cache hierarchy or access latency modeled here (spec.md
// §1 Non-goals); a read or write completes within the cycle that issues it.
type Memory struct {
	words []int64
}

// NewMemory creates zero-initialized memory with the default word count.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultMemoryWords)
}

// NewMemoryWithSize creates zero-initialized memory holding n words.
func NewMemoryWithSize(n int) *Memory {
	return &Memory{words: make([]int64, n)}
}

// Size returns the number of addressable words.
func (m *Memory) Size() int {
	return len(m.words)
}

// wordBytes is the stride between consecutive words in the byte-addressable
// space (spec.md §8 S4: `SW R1,4(R0)` addresses the word right after
// `0(R0)`, so a word is 4 bytes).
const wordBytes = 4

// wordIndex converts a byte address into a word index, validating bounds
// and alignment. Addresses must be non-negative and a multiple of wordBytes.
func (m *Memory) wordIndex(address int64) (int, error) {
	if address < 0 || address%wordBytes != 0 {
		return 0, &OutOfBoundsError{Address: address, Size: 1}
	}

	idx := int(address / wordBytes)
	if idx < 0 || idx >= len(m.words) {
		return 0, &OutOfBoundsError{Address: address, Size: 1}
	}

	return idx, nil
}

// ReadWord reads the word at the given byte address.
func (m *Memory) ReadWord(address int64) (int64, error) {
	idx, err := m.wordIndex(address)
	if err != nil {
		return 0, err
	}
	return m.words[idx], nil
}

// WriteWord writes the word at the given byte address.
func (m *Memory) WriteWord(address int64, value int64) error {
	idx, err := m.wordIndex(address)
	if err != nil {
		return err
	}
	m.words[idx] = value
	return nil
}

// Reset zeros every word without changing the memory's size.
func (m *Memory) Reset() {
	for i := range m.words {
		m.words[i] = 0
	}
}

// Snapshot returns a copy of memory contents for read-only inspection.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.words))
	copy(out, m.words)
	return out
}
