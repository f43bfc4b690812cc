// Package randutil builds math/rand/v2 generators from 64-bit seeds so a
// whole server run (and therefore every shuffle) is reproducible from one
// --seed value.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a generator seeded deterministically from the provided int64.
// The two PCG words are derived with a splitmix-style finalizer so nearby
// seeds do not produce correlated streams.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewFromTime returns a generator seeded from the current wall clock, for
// runs where no explicit seed was requested.
func NewFromTime() *rand.Rand {
	return New(time.Now().UnixNano())
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
