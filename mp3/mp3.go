// Package mp3 implements an mp3 file sink encoding through lame.
package mp3

import (
	"bytes"
	"encoding/binary"
	"os"
	"sync"

	"github.com/viert/lame"

	"pulse"
	"pulse/signal"
)

// Sink saves audio to an mp3 file. It cannot be reused for consequent
// runs.
type Sink struct {
	pulse.UID
	path    string
	bitRate int
	quality int
	f       *os.File
	wr      *lame.LameWriter
	once    sync.Once
}

// NewSink creates a new mp3 sink writing to path.
func NewSink(path string, bitRate, quality int) *Sink {
	return &Sink{
		UID:     pulse.NewUID(),
		path:    path,
		bitRate: bitRate,
		quality: quality,
	}
}

// Open creates the file and initializes the lame encoder.
func (s *Sink) Open(rate pulse.SampleRate, numChannels pulse.NumChannels, _ pulse.BufferSize) error {
	if err := pulse.SingleUse(&s.once); err != nil {
		return err
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.f = f
	s.wr = lame.NewWriter(f)
	s.wr.Encoder.SetBitrate(s.bitRate)
	s.wr.Encoder.SetQuality(s.quality)
	s.wr.Encoder.SetNumChannels(int(numChannels))
	s.wr.Encoder.SetInSamplerate(int(rate))
	s.wr.Encoder.SetMode(lame.JOINT_STEREO)
	s.wr.Encoder.SetVBR(lame.VBR_RH)
	s.wr.Encoder.InitParams()
	return nil
}

// Write encodes one buffer into the file.
func (s *Sink) Write(b signal.Float64) error {
	buf := new(bytes.Buffer)
	for _, v := range b.AsInterInt(signal.BitDepth16) {
		if err := binary.Write(buf, binary.LittleEndian, int16(v)); err != nil {
			return err
		}
	}
	_, err := s.wr.Write(buf.Bytes())
	return err
}

// Flush closes the encoder and the file.
func (s *Sink) Flush() error {
	err := s.wr.Close()
	if err != nil {
		return err
	}
	return s.f.Close()
}
