package gen

import (
	"math/rand"

	"pulse/graph"
)

// Noise is a seeded white-noise generator. The seed makes the output
// deterministic for the same call sequence.
type Noise struct {
	graph.Base

	amp  float64
	seed int64
	rand *rand.Rand
}

// NewNoise returns a white-noise generator with the amplitude and seed.
func NewNoise(amp float64, seed int64) *Noise {
	return &Noise{amp: amp, seed: seed, rand: rand.New(rand.NewSource(seed))}
}

// SetAmplitude changes the output amplitude.
func (n *Noise) SetAmplitude(amp float64) { n.amp = amp }

// ProcessSample returns the next noise sample in [-amp, amp).
func (n *Noise) ProcessSample() float64 {
	return n.amp * (n.rand.Float64()*2 - 1)
}

// Reset rewinds the generator to its seed.
func (n *Noise) Reset() {
	n.rand = rand.New(rand.NewSource(n.seed))
}
