package pulse_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse"
)

func TestUID(t *testing.T) {
	a := pulse.NewUID()
	b := pulse.NewUID()
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSingleUse(t *testing.T) {
	var once sync.Once
	require.NoError(t, pulse.SingleUse(&once))
	assert.ErrorIs(t, pulse.SingleUse(&once), pulse.ErrSingleUse)
}

func TestDurationOf(t *testing.T) {
	rate := pulse.SampleRate(44100)
	assert.Equal(t, time.Second, rate.DurationOf(44100))
	assert.Equal(t, 500*time.Millisecond, rate.DurationOf(22050))
}

func TestSamplesIn(t *testing.T) {
	rate := pulse.SampleRate(44100)
	assert.Equal(t, uint64(44100), rate.SamplesIn(time.Second))
	assert.Equal(t, uint64(4), rate.SamplesIn(100*time.Microsecond))
}
