// Package rng provides the seeded pseudo-random stream that every random
// decision in a round draws from.
//
// The generator is a 32-bit mulberry32 state machine. Two generators built
// from the same seed produce the same sequence on every platform, which keeps
// the headless batch runner and the interactive bridge in lockstep.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
)

const twoPow32 = 4294967296.0

// RNG is a deterministic pseudo-random stream. It is not safe for concurrent
// use; each round owns its own instance.
type RNG struct {
	seed  uint32
	state uint32
}

// New returns a generator seeded with seed.
func New(seed uint32) *RNG {
	return &RNG{seed: seed, state: seed}
}

// NewDefault returns a generator seeded from crypto/rand. The seed is still
// reported by Seed so a round can be replayed later.
func NewDefault() *RNG {
	return New(DefaultSeed())
}

// DefaultSeed draws a non-deterministic seed. It falls back to a fixed value
// when the system entropy source is unavailable.
func DefaultSeed() uint32 {
	var b [4]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0x9e3779b9
	}
	return binary.LittleEndian.Uint32(b[:])
}

// Seed reports the seed the generator was constructed with.
func (r *RNG) Seed() uint32 {
	return r.seed
}

// Uint32 advances the state and returns the next raw 32-bit output.
func (r *RNG) Uint32() uint32 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float returns a value in [0, 1).
func (r *RNG) Float() float64 {
	return float64(r.Uint32()) / twoPow32
}

// Range returns a value in [min, max). When max <= min it returns min.
func (r *RNG) Range(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float()*(max-min)
}

// Int returns an integer in the inclusive range [min, max].
func (r *RNG) Int(min, max int) int {
	if max <= min {
		return min
	}
	span := float64(max - min + 1)
	return min + int(math.Floor(r.Float()*span))
}

// Angle returns an angle in radians in [0, 2π).
func (r *RNG) Angle() float64 {
	return r.Float() * 2 * math.Pi
}

// Chance reports whether a single draw falls below p.
func (r *RNG) Chance(p float64) bool {
	return r.Float() < p
}
