// Package wav implements a wav file sink.
package wav

import (
	"errors"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pulse"
	"pulse/signal"
)

// ErrUnsupportedBitDepth is returned when an unsupported bit depth is
// used.
var ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")

// Sink saves audio to a wav file. It cannot be reused for consequent
// runs.
type Sink struct {
	pulse.UID
	path     string
	bitDepth signal.BitDepth
	format   int
	file     *os.File
	encoder  *wav.Encoder
	ib       *audio.IntBuffer
	once     sync.Once
}

// NewSink creates a new wav sink writing to path.
func NewSink(path string, bitDepth signal.BitDepth) (*Sink, error) {
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return nil, ErrUnsupportedBitDepth
	}
	return &Sink{
		UID:      pulse.NewUID(),
		path:     path,
		bitDepth: bitDepth,
		format:   1,
	}, nil
}

// Open creates the file and the encoder.
func (s *Sink) Open(rate pulse.SampleRate, numChannels pulse.NumChannels, _ pulse.BufferSize) error {
	if err := pulse.SingleUse(&s.once); err != nil {
		return err
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.encoder = wav.NewEncoder(f, int(rate), int(s.bitDepth), int(numChannels), s.format)
	s.ib = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: int(numChannels),
			SampleRate:  int(rate),
		},
		SourceBitDepth: int(s.bitDepth),
	}
	return nil
}

// Write encodes one buffer into the file.
func (s *Sink) Write(b signal.Float64) error {
	s.ib.Data = b.AsInterInt(s.bitDepth)
	return s.encoder.Write(s.ib)
}

// Flush closes the encoder and the file.
func (s *Sink) Flush() error {
	err := s.encoder.Close()
	if err != nil {
		return err
	}
	return s.file.Close()
}
