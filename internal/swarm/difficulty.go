package swarm

import "sync/atomic"

// InitialDifficulty is the proof-of-work difficulty assumed before any
// network feedback has been observed.
const InitialDifficulty = 40

// Difficulty is the process-wide current proof-of-work difficulty. The
// network may replace it with any value it reports; monotonicity is not
// required.
type Difficulty struct {
	value atomic.Int64
}

// NewDifficulty creates a Difficulty seeded at InitialDifficulty.
func NewDifficulty() *Difficulty {
	d := &Difficulty{}
	d.value.Store(InitialDifficulty)
	return d
}

// Get returns the current difficulty.
func (d *Difficulty) Get() int {
	return int(d.value.Load())
}

// Set replaces the current difficulty with a network-reported value.
func (d *Difficulty) Set(v int) {
	d.value.Store(int64(v))
}
