// Package rng provides the reproducible random stream shared by a run.
package rng

import (
	"golang.org/x/exp/rand"
)

// Sampler is a seedable pseudo-random stream. A single Sampler is owned by the
// collector and passed by pointer to the schemes; it is not safe for concurrent use.
type Sampler struct {
	seed uint64
	src  *rand.PCGSource
	rnd  *rand.Rand
}

// Checkpoint is an exact copy of a Sampler's generator state.
type Checkpoint struct {
	state rand.PCGSource
}

// New creates a Sampler seeded with seed.
func New(seed uint64) *Sampler {
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &Sampler{
		seed: seed,
		src:  src,
		rnd:  rand.New(src),
	}
}

// Seed returns the seed the stream was last reseeded with.
func (s *Sampler) Seed() uint64 {
	return s.seed
}

// Reseed resets the stream deterministically from seed.
func (s *Sampler) Reseed(seed uint64) {
	s.seed = seed
	s.src.Seed(seed)
}

// Checkpoint captures the current state.
func (s *Sampler) Checkpoint() Checkpoint {
	return Checkpoint{state: *s.src}
}

// Restore rewinds the stream to cp, undoing every draw made since it was taken.
func (s *Sampler) Restore(cp Checkpoint) {
	*s.src = cp.state
}

// NormFloat64 returns a standard normal draw.
func (s *Sampler) NormFloat64() float64 {
	return s.rnd.NormFloat64()
}

// Float64 returns a uniform draw in [0, 1).
func (s *Sampler) Float64() float64 {
	return s.rnd.Float64()
}

// Fill writes len(dst) standard normal draws into dst.
func (s *Sampler) Fill(dst []float64) {
	for i := range dst {
		dst[i] = s.rnd.NormFloat64()
	}
}
