// Package pulse provides shared types for the pulse audio engine.
package pulse

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/xid"
)

type (
	// SampleRate is the number of samples per second.
	SampleRate int

	// BufferSize is the number of frames in a processing block.
	BufferSize int

	// NumChannels is the number of output channels.
	NumChannels int

	// UID is a unique identifier of an engine entity.
	UID struct {
		value string
	}
)

// NewUID returns a new unique id.
func NewUID() UID {
	return UID{value: xid.New().String()}
}

// ID returns the string value of the id.
func (u UID) ID() string {
	return u.value
}

// ErrSingleUse is returned when a single-use entity is reused.
var ErrSingleUse = errors.New("single use reused")

// SingleUse is designed to be used in Reset-like functions of entities
// which cannot be run more than once.
func SingleUse(once *sync.Once) error {
	err := ErrSingleUse
	once.Do(func() {
		err = nil
	})
	return err
}

// DurationOf returns the time duration of the passed number of samples
// at this sample rate.
func (rate SampleRate) DurationOf(samples uint64) time.Duration {
	return time.Duration(float64(samples) / float64(rate) * float64(time.Second))
}

// SamplesIn returns the number of samples in the passed duration at this
// sample rate. The result is truncated, samples are sub-interval positions.
func (rate SampleRate) SamplesIn(d time.Duration) uint64 {
	return uint64(d.Seconds() * float64(rate))
}
