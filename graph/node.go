// Package graph implements the processing-token indexed node graph: a
// forest of signal-processing nodes aggregated by per-(token, channel)
// root nodes and coordinated by a Manager. Tokens partition the graph
// into independent logical domains; operations never cross tokens
// implicitly.
package graph

import (
	"fmt"
	"sync"
)

// Token identifies a logical processing domain.
type Token uint8

const (
	// AudioRate is the audio-rate processing domain.
	AudioRate Token = iota
	// VisualRate is the frame-rate processing domain.
	VisualRate
	// CustomRate is a caller-defined processing domain.
	CustomRate
	// AudioBackend tags buffers bound to the audio hardware backend.
	AudioBackend
	// GraphicsBackend tags buffers bound to the graphics backend.
	GraphicsBackend
)

func (t Token) String() string {
	switch t {
	case AudioRate:
		return "audio_rate"
	case VisualRate:
		return "visual_rate"
	case CustomRate:
		return "custom_rate"
	case AudioBackend:
		return "audio_backend"
	case GraphicsBackend:
		return "graphics_backend"
	}
	return fmt.Sprintf("token(%d)", uint8(t))
}

type (
	// Node is a polymorphic signal-processing unit. ProcessSample pulls
	// from upstream inputs as needed and returns this node's contribution
	// for the current position, computed purely from internal state and
	// upstream outputs. Internal state mutation (phase advance) is the
	// node's own business and must be deterministic for the same call
	// sequence.
	Node interface {
		ProcessSample() float64
	}

	// Input is implemented by nodes that accept an upstream connection.
	Input interface {
		SetInput(Node)
	}

	// Sourced is implemented by nodes that expose their upstream nodes,
	// enabling cycle checks at connection time.
	Sourced interface {
		Inputs() []Node
	}

	// Resetter is implemented by nodes with per-activation state that
	// should be cleared when the node is detached from the graph.
	Resetter interface {
		Reset()
	}
)

// Base carries the shared bookkeeping of a graph node: which channels
// use it, whether it was already processed in the current sample pass,
// its last output and an optional routing transition. Nodes embed Base
// to participate in cross-channel output sharing: when one node instance
// feeds several roots, the first root to reach it in a sample pass
// advances its state and the others reuse the cached output, so shared
// nodes are never double-advanced.
//
// The processed flag clears only once every using channel has completed
// the sample, tracked as a bitmask of reset requests.
type Base struct {
	mu             sync.Mutex
	activeChannels uint32
	resetRequests  uint32
	processed      bool
	lastOutput     float64
	routing        *RoutingState
}

func (b *Base) nodeState() *Base { return b }

type stateful interface {
	nodeState() *Base
}

// stateOf returns the embedded Base of a node, nil if the node does not
// embed one.
func stateOf(n Node) *Base {
	if s, ok := n.(stateful); ok {
		return s.nodeState()
	}
	return nil
}

// RegisterChannel marks the channel as a user of this node.
func (b *Base) RegisterChannel(channel uint32) {
	b.mu.Lock()
	b.activeChannels |= 1 << channel
	b.mu.Unlock()
}

// UnregisterChannel removes the channel from the usage mask.
func (b *Base) UnregisterChannel(channel uint32) {
	b.mu.Lock()
	b.activeChannels &^= 1 << channel
	b.resetRequests &^= 1 << channel
	b.mu.Unlock()
}

// UsedByChannel reports whether the channel currently uses this node.
func (b *Base) UsedByChannel(channel uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeChannels&(1<<channel) != 0
}

// ChannelMask returns the bitmask of channels using this node.
func (b *Base) ChannelMask() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeChannels
}

// LastOutput returns the most recent output without triggering
// processing.
func (b *Base) LastOutput() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastOutput
}

func (b *Base) markProcessed(out float64) {
	b.mu.Lock()
	b.processed = true
	b.lastOutput = out
	b.mu.Unlock()
}

func (b *Base) isProcessed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed
}

// requestReset records that the channel completed the current sample.
// Once every using channel has reported, the processed flag clears and
// the next sample pass may advance the node again.
func (b *Base) requestReset(channel uint32) {
	b.mu.Lock()
	b.resetRequests |= (1 << channel) & b.activeChannels
	if b.resetRequests == b.activeChannels {
		b.processed = false
		b.resetRequests = 0
	}
	b.mu.Unlock()
}

// resetProcessed unconditionally clears the per-sample bookkeeping.
func (b *Base) resetProcessed() {
	b.mu.Lock()
	b.processed = false
	b.resetRequests = 0
	b.mu.Unlock()
}

// setRouting installs a routing transition on the node.
func (b *Base) setRouting(s *RoutingState) {
	b.mu.Lock()
	b.routing = s
	b.mu.Unlock()
}

// Routing returns the active routing transition, nil if none.
func (b *Base) Routing() *RoutingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.routing
}

// routingScale is the gain applied to this node's contribution on the
// channel, 1 outside of a routing transition.
func (b *Base) routingScale(channel uint32) float64 {
	b.mu.Lock()
	s := b.routing
	b.mu.Unlock()
	if s == nil {
		return 1
	}
	return s.Amount(channel)
}
