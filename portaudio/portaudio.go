// Package portaudio implements a playback sink on the default portaudio
// device.
package portaudio

import (
	"github.com/gordonklaus/portaudio"

	"pulse"
	"pulse/signal"
)

// Sink plays buffers through the default portaudio output device.
type Sink struct {
	pulse.UID
	buf         []float32
	stream      *portaudio.Stream
	numChannels int
}

// NewSink returns a new uninitialized sink.
func NewSink() *Sink {
	return &Sink{UID: pulse.NewUID()}
}

// Open initializes portaudio and starts the default output stream.
func (s *Sink) Open(rate pulse.SampleRate, numChannels pulse.NumChannels, bufferSize pulse.BufferSize) error {
	s.numChannels = int(numChannels)
	s.buf = make([]float32, int(bufferSize)*s.numChannels)
	err := portaudio.Initialize()
	if err != nil {
		return err
	}
	s.stream, err = portaudio.OpenDefaultStream(0, s.numChannels, float64(rate), int(bufferSize), &s.buf)
	if err != nil {
		return err
	}
	return s.stream.Start()
}

// Write plays one buffer. Short channels are padded with silence so the
// stream always advances a full hardware buffer.
func (s *Sink) Write(b signal.Float64) error {
	for i := range s.buf {
		s.buf[i] = 0
	}
	for j := range b {
		if j >= s.numChannels {
			break
		}
		for i := range b[j] {
			if pos := i*s.numChannels + j; pos < len(s.buf) {
				s.buf[pos] = float32(b[j][i])
			}
		}
	}
	return s.stream.Write()
}

// Flush stops the stream and terminates portaudio.
func (s *Sink) Flush() error {
	err := s.stream.Stop()
	if err != nil {
		return err
	}
	err = s.stream.Close()
	if err != nil {
		return err
	}
	return portaudio.Terminate()
}
