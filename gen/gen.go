// Package gen provides the built-in generator and processor nodes of
// the audio-rate graph.
package gen

import (
	"math"

	"pulse"
	"pulse/graph"
)

// Sine is a sinusoidal oscillator. The phase accumulator is internal
// state, advanced once per processed sample.
type Sine struct {
	graph.Base

	rate  pulse.SampleRate
	freq  float64
	amp   float64
	phase float64
}

// NewSine returns an oscillator at the frequency and amplitude.
func NewSine(rate pulse.SampleRate, freq, amp float64) *Sine {
	return &Sine{rate: rate, freq: freq, amp: amp}
}

// SetFrequency sets the oscillator frequency, effective from the next
// sample.
func (s *Sine) SetFrequency(freq float64) { s.freq = freq }

// SetAmplitude sets the output amplitude.
func (s *Sine) SetAmplitude(amp float64) { s.amp = amp }

// ProcessSample advances the phase and returns the next sample.
func (s *Sine) ProcessSample() float64 {
	out := s.amp * math.Sin(2*math.Pi*s.phase)
	s.phase += s.freq / float64(s.rate)
	if s.phase >= 1 {
		s.phase -= math.Floor(s.phase)
	}
	return out
}

// Reset rewinds the phase accumulator.
func (s *Sine) Reset() { s.phase = 0 }

// Constant emits a fixed value every sample.
type Constant struct {
	graph.Base

	value float64
}

// NewConstant returns a node emitting value.
func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

// SetValue changes the emitted value.
func (c *Constant) SetValue(value float64) { c.value = value }

// ProcessSample returns the configured value.
func (c *Constant) ProcessSample() float64 { return c.value }
