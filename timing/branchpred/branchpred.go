// Package branchpred implements the one-bit, direction-only branch
// predictor keyed by instruction index (spec.md §4.F).
package branchpred

// Predictor is a one-bit direction predictor: it remembers only the
// last-observed outcome per branch and predicts that outcome will
// repeat. Unseen branches default to not-taken.
type Predictor struct {
	lastDirection map[int]bool
}

// New creates a predictor with no history.
func New() *Predictor {
	return &Predictor{lastDirection: make(map[int]bool)}
}

// Predict returns the predicted direction for the branch at instrIndex.
// Default for a never-seen branch is not-taken.
func (p *Predictor) Predict(instrIndex int) bool {
	return p.lastDirection[instrIndex]
}

// Update records the actual outcome of a resolved branch, regardless of
// what was predicted.
func (p *Predictor) Update(instrIndex int, actual bool) {
	p.lastDirection[instrIndex] = actual
}

// Reset discards all learned history.
func (p *Predictor) Reset() {
	p.lastDirection = make(map[int]bool)
}
