package engine

import (
	"math/rand"
	"sync"
)

// Rand serializes draws from a random source shared across engine
// components. The matcher and the price feed draw from the same seeded
// source, so every draw goes through one lock.
type Rand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRand wraps a seeded source.
func NewRand(src *rand.Rand) *Rand {
	return &Rand{src: src}
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}
