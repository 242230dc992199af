package sched

import (
	"pulse"
)

// Clock is a monotonic sample counter. It is advanced by the scheduler
// with exactly the number of frames processed each cycle and is the sole
// time base for task wakeups. It is never reset except on full scheduler
// reconstruction.
type Clock struct {
	rate pulse.SampleRate
	pos  uint64
}

// NewClock returns a clock for the provided sample rate.
func NewClock(rate pulse.SampleRate) *Clock {
	return &Clock{rate: rate}
}

// Advance moves the clock forward by the number of frames processed.
func (c *Clock) Advance(frames uint64) {
	c.pos += frames
}

// Pos returns the current absolute sample position.
func (c *Clock) Pos() uint64 {
	return c.pos
}

// Rate returns the sample rate of the clock.
func (c *Clock) Rate() pulse.SampleRate {
	return c.rate
}

// SecondsToSamples converts seconds to a sample count at the clock rate.
// The result is truncated: sample counts are sub-interval positions.
func (c *Clock) SecondsToSamples(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds * float64(c.rate))
}
