// Package randutil centralises how the engine derives its random sources.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a PCG-backed *rand.Rand seeded deterministically from seed.
// Both 64-bit PCG seeds are derived from the one value so a single int64 is
// enough to replay a deck.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns a time-derived seed for production use.
func Seed() int64 {
	return time.Now().UnixNano()
}

// Derive returns the seed for the n-th independent stream below seed, used
// to give simulation workers their own reproducible RNG.
func Derive(seed int64, n int) int64 {
	return int64(mix(uint64(seed) + uint64(n+1)*goldenRatio64))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
