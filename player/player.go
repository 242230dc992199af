// Package player loads audio files into playback nodes. Supported
// formats: wav, aiff, mp3 and ogg-vorbis, dispatched by file extension.
package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"pulse"
	"pulse/graph"
	"pulse/signal"
)

var (
	// ErrUnsupportedFormat is returned for an unknown file extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrInvalidFile is returned when a file fails to decode.
	ErrInvalidFile = errors.New("invalid audio file")
)

// Player is a graph node playing back a decoded file. Multi-channel
// sources are mixed down to mono, one sample per invocation; register
// the player on several channels to play it there simultaneously.
type Player struct {
	graph.Base

	rate     pulse.SampleRate
	channels signal.Float64
	pos      int
	loop     bool
}

// Load decodes the file at path into a playback node.
func Load(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		channels signal.Float64
		rate     pulse.SampleRate
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		channels, rate, err = decodeWav(f)
	case ".aiff", ".aif":
		channels, rate, err = decodeAiff(f)
	case ".mp3":
		channels, rate, err = decodeMp3(f)
	case ".ogg":
		channels, rate, err = decodeOgg(f)
	default:
		return nil, fmt.Errorf("%v: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return &Player{rate: rate, channels: channels}, nil
}

// SetLoop makes playback wrap around instead of going silent at the
// end.
func (p *Player) SetLoop(loop bool) { p.loop = loop }

// Rate returns the source sample rate.
func (p *Player) Rate() pulse.SampleRate { return p.rate }

// Len returns the number of samples per channel.
func (p *Player) Len() int { return p.channels.Size() }

// Duration returns the playback duration.
func (p *Player) Duration() time.Duration {
	return p.rate.DurationOf(uint64(p.Len()))
}

// Done reports whether a non-looping playback has reached the end.
func (p *Player) Done() bool {
	return !p.loop && p.pos >= p.Len()
}

// ProcessSample returns the next mono-mixed sample, 0 after the end of a
// non-looping playback.
func (p *Player) ProcessSample() float64 {
	size := p.Len()
	if size == 0 {
		return 0
	}
	if p.pos >= size {
		if !p.loop {
			return 0
		}
		p.pos = 0
	}
	var sum float64
	for _, ch := range p.channels {
		if p.pos < len(ch) {
			sum += ch[p.pos]
		}
	}
	p.pos++
	return sum / float64(len(p.channels))
}

// Reset rewinds playback to the start.
func (p *Player) Reset() { p.pos = 0 }

func decodeWav(f *os.File) (signal.Float64, pulse.SampleRate, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, ErrInvalidFile
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	floats := signal.InterInt{
		Data:        ib.Data,
		NumChannels: ib.Format.NumChannels,
		BitDepth:    signal.BitDepth(d.BitDepth),
	}.AsFloat64()
	return floats, pulse.SampleRate(d.SampleRate), nil
}

func decodeAiff(f *os.File) (signal.Float64, pulse.SampleRate, error) {
	d := aiff.NewDecoder(f)
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	floats := signal.InterInt{
		Data:        ib.Data,
		NumChannels: ib.Format.NumChannels,
		BitDepth:    signal.BitDepth(d.BitDepth),
	}.AsFloat64()
	return floats, pulse.SampleRate(d.SampleRate), nil
}

// decodeMp3 reads the full 16-bit little-endian stereo stream the
// decoder produces.
func decodeMp3(f *os.File) (signal.Float64, pulse.SampleRate, error) {
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, err
	}
	ints := make([]int, len(raw)/2)
	for i := range ints {
		ints[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}
	floats := signal.InterInt{
		Data:        ints,
		NumChannels: 2,
		BitDepth:    signal.BitDepth16,
	}.AsFloat64()
	return floats, pulse.SampleRate(d.SampleRate()), nil
}

func decodeOgg(f *os.File) (signal.Float64, pulse.SampleRate, error) {
	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}
	floats := make(signal.Float64, format.Channels)
	for ch := range floats {
		floats[ch] = make([]float64, 0, len(data)/format.Channels)
	}
	for i, v := range data {
		ch := i % format.Channels
		floats[ch] = append(floats[ch], float64(v))
	}
	return floats, pulse.SampleRate(format.SampleRate), nil
}
