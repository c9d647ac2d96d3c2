package synth

import (
	"math/rand"
	"time"
)

// Rand wraps a seeded *rand.Rand with the inclusive range helper used by
// the generator and the result synthesizer.
type Rand struct {
	r *rand.Rand
}

// NewRand wraps src. A nil src is seeded from the clock.
func NewRand(src rand.Source) *Rand {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Rand{r: rand.New(src)}
}

// Source returns a rand.Source for seed, or a clock-seeded one when seed is 0.
func Source(seed int64) rand.Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.NewSource(seed)
}

// IntRange returns a uniform integer in [lo, hi]. If hi < lo it returns lo.
func (r *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.r.Intn(hi-lo+1)
}

// Intn returns a uniform integer in [0, n).
func (r *Rand) Intn(n int) int {
	return r.r.Intn(n)
}
