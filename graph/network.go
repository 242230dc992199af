package graph

import "sync"

// OutputMode selects what a network does with its processed output.
type OutputMode uint8

const (
	// OutputInternal keeps the output inside the network; members
	// coordinate among themselves.
	OutputInternal OutputMode = iota
	// OutputAudioSink makes the network contribute its summed output to
	// the audio channels it is registered on.
	OutputAudioSink
)

// NodeNetwork is a self-coordinating group of nodes processed as one
// unit, distinct from ad-hoc root-registered nodes. Audio-sink networks
// render one block per cycle into an internal buffer which the manager
// mixes into each registered channel, scaled by the network's routing
// gain.
//
// The network embeds the same per-cycle bookkeeping as a node: the
// processed flag guarantees the block is rendered once per cycle no
// matter how many channels consume it.
type NodeNetwork struct {
	Base

	name string
	mode OutputMode

	mu      sync.Mutex
	nodes   []Node
	enabled bool
	buffer  []float64
}

// NewNodeNetwork returns an enabled, empty network.
func NewNodeNetwork(name string, mode OutputMode) *NodeNetwork {
	return &NodeNetwork{name: name, mode: mode, enabled: true}
}

// Name returns the network name.
func (w *NodeNetwork) Name() string { return w.name }

// Mode returns the output mode.
func (w *NodeNetwork) Mode() OutputMode { return w.mode }

// Add appends a member node; duplicates are ignored.
func (w *NodeNetwork) Add(n Node) {
	if n == nil {
		panic("graph: add nil node to network")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.nodes {
		if existing == n {
			return
		}
	}
	w.nodes = append(w.nodes, n)
}

// NodeCount returns the number of member nodes.
func (w *NodeNetwork) NodeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.nodes)
}

// SetEnabled toggles the network. Disabled networks are skipped during
// processing.
func (w *NodeNetwork) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.mu.Unlock()
}

// Enabled reports whether the network participates in processing.
func (w *NodeNetwork) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// ProcessBlock renders n samples of the summed member output into the
// network buffer.
func (w *NodeNetwork) ProcessBlock(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cap(w.buffer) < n {
		w.buffer = make([]float64, n)
	}
	w.buffer = w.buffer[:n]
	for i := range w.buffer {
		var sum float64
		for _, node := range w.nodes {
			sum += node.ProcessSample()
		}
		w.buffer[i] = sum
	}
}

// Buffer returns the block rendered by the last ProcessBlock call.
func (w *NodeNetwork) Buffer() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer
}
