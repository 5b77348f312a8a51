package internal

import (
	"math/rand"
	"time"
)

// Jitter generates uniformly distributed random delays for
// Listen-Before-Talk backoff (spec §4.4). Two peers must desynchronize
// independently of each other, which requires a process-seeded source
// rather than the deterministic xorshift generator the teacher stack
// uses internally for its own allocation-free TinyGo builds (see
// DESIGN.md) — Jitter wraps a *rand.Rand the same way the teacher's
// test fakes in internal/ltesto do (math/rand, not crypto/rand: this
// delay is a collision-avoidance heuristic, not a security boundary).
//
// Jitter is not safe for concurrent use; give each goroutine that
// needs random backoff (the sender tick loop, the receiver's
// short-ACK path) its own instance.
type Jitter struct {
	rng *rand.Rand
}

// NewJitter returns a Jitter with its own random source, seeded from
// the current time.
func NewJitter() Jitter {
	return Jitter{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Between returns a pseudo-random duration uniformly distributed in
// [lo, hi]. It panics if hi < lo, a programmer error.
func (j Jitter) Between(lo, hi time.Duration) time.Duration {
	if hi < lo {
		panic("internal: Jitter.Between called with hi < lo")
	}
	if hi == lo {
		return lo
	}
	span := int64(hi - lo + 1)
	return lo + time.Duration(j.rng.Int63n(span))
}
