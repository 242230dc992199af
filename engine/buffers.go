package engine

import (
	"sync"

	"pulse"
	"pulse/graph"
	"pulse/signal"
)

type (
	// Sink consumes processed buffers. Implementations write to audio
	// hardware, files or encoders.
	Sink interface {
		Open(rate pulse.SampleRate, numChannels pulse.NumChannels, bufferSize pulse.BufferSize) error
		Write(buf signal.Float64) error
		Flush() error
	}

	// BufferManager fans processed buffers out to the sinks registered
	// under each backend token.
	BufferManager struct {
		mu    sync.RWMutex
		sinks map[graph.Token][]Sink
	}
)

// NewBufferManager returns an empty manager.
func NewBufferManager() *BufferManager {
	return &BufferManager{sinks: make(map[graph.Token][]Sink)}
}

// RegisterSink adds a sink under the backend token; nil is a no-op.
func (b *BufferManager) RegisterSink(token graph.Token, s Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.sinks[token] = append(b.sinks[token], s)
	b.mu.Unlock()
}

// Sinks returns a copy of the sink list for the token.
func (b *BufferManager) Sinks(token graph.Token) []Sink {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sinks := make([]Sink, len(b.sinks[token]))
	copy(sinks, b.sinks[token])
	return sinks
}

// Open opens every sink of the token. On failure the already opened
// sinks are flushed again and the error propagates, leaving the engine
// reinitializable.
func (b *BufferManager) Open(token graph.Token, rate pulse.SampleRate, numChannels pulse.NumChannels, bufferSize pulse.BufferSize) error {
	sinks := b.Sinks(token)
	for i, s := range sinks {
		if err := s.Open(rate, numChannels, bufferSize); err != nil {
			for j := 0; j < i; j++ {
				_ = sinks[j].Flush()
			}
			return err
		}
	}
	return nil
}

// Write hands the buffer to every sink of the token, stopping at the
// first failure.
func (b *BufferManager) Write(token graph.Token, buf signal.Float64) error {
	for _, s := range b.Sinks(token) {
		if err := s.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every sink of the token; all sinks are flushed even when
// one fails, and the first error is returned.
func (b *BufferManager) Flush(token graph.Token) error {
	var first error
	for _, s := range b.Sinks(token) {
		if err := s.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
