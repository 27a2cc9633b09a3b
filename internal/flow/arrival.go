package flow

import "math/rand"

// UniformArrivalSource draws arrivals uniformly from {0,1,2,3} using
// an explicitly seeded *rand.Rand, so a controller built with the
// same seed replays identically in tests.
type UniformArrivalSource struct {
	rng *rand.Rand
}

// NewUniformArrivalSource seeds a new deterministic arrival source.
func NewUniformArrivalSource(seed int64) *UniformArrivalSource {
	return &UniformArrivalSource{rng: rand.New(rand.NewSource(seed))}
}

// Arrival returns a draw in [0, 3].
func (s *UniformArrivalSource) Arrival() int {
	return s.rng.Intn(4)
}

// ZeroArrivals never injects background arrivals; useful for
// property tests that only want to observe the chosen phase without
// demand noise.
type ZeroArrivals struct{}

// Arrival always returns 0.
func (ZeroArrivals) Arrival() int { return 0 }
