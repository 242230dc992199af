package player_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse"
	"pulse/player"
	"pulse/signal"
	"pulse/wav"
)

// writeWav renders the buffer to a wav file and returns its path.
func writeWav(t *testing.T, buf signal.Float64, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	s, err := wav.NewSink(path, signal.BitDepth16)
	require.NoError(t, err)
	require.NoError(t, s.Open(pulse.SampleRate(rate), pulse.NumChannels(len(buf)), 0))
	require.NoError(t, s.Write(buf))
	require.NoError(t, s.Flush())
	return path
}

func TestLoadWav(t *testing.T) {
	buf := signal.Float64{
		{0, 0.25, 0.5, 0.25},
		{0, 0.25, 0.5, 0.25},
	}
	path := writeWav(t, buf, 8000)

	p, err := player.Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 8000, p.Rate())
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 500*time.Microsecond, p.Duration())

	// both channels carry the same data, the mono mixdown reproduces it
	for _, want := range buf[0] {
		assert.InDelta(t, want, p.ProcessSample(), 1e-3)
	}

	// a finished non-looping player goes silent
	assert.True(t, p.Done())
	assert.Zero(t, p.ProcessSample())

	p.Reset()
	assert.InDelta(t, 0, p.ProcessSample(), 1e-3)
	assert.InDelta(t, 0.25, p.ProcessSample(), 1e-3)
}

func TestLoop(t *testing.T) {
	path := writeWav(t, signal.Float64{{0.5, 0.25}}, 8000)
	p, err := player.Load(path)
	require.NoError(t, err)
	p.SetLoop(true)

	expected := []float64{0.5, 0.25, 0.5, 0.25, 0.5}
	for i, want := range expected {
		assert.InDelta(t, want, p.ProcessSample(), 1e-3, "sample %d", i)
	}
	assert.False(t, p.Done())
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flac")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	_, err := player.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, player.ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := player.Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestLoadInvalidWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0644))

	_, err := player.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, player.ErrInvalidFile)
}
