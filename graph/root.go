package graph

import "sync"

// RootNode is the per-(token, channel) aggregation point. It holds the
// set of registered child nodes and produces one summed sample per
// invocation. Summation is order-independent; registration keeps
// insertion order for reproducible iteration.
type RootNode struct {
	mu      sync.Mutex
	channel uint32
	nodes   []Node
}

// NewRootNode returns a root for the channel.
func NewRootNode(channel uint32) *RootNode {
	return &RootNode{channel: channel}
}

// Channel returns the channel this root aggregates.
func (r *RootNode) Channel() uint32 {
	return r.channel
}

// Register adds a node as a child. Registering the same node twice is
// idempotent: it contributes exactly once.
func (r *RootNode) Register(n Node) {
	if n == nil {
		panic("graph: register nil node")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.nodes {
		if existing == n {
			return
		}
	}
	r.nodes = append(r.nodes, n)
	if b := stateOf(n); b != nil {
		b.RegisterChannel(r.channel)
	}
}

// Unregister removes the child association; a no-op for unknown nodes.
// The node stays globally registered if referenced elsewhere.
func (r *RootNode) Unregister(n Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.nodes {
		if existing == n {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			if b := stateOf(n); b != nil {
				b.UnregisterChannel(r.channel)
				b.resetProcessed()
			}
			return
		}
	}
}

// Size returns the number of registered child nodes.
func (r *RootNode) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// Nodes returns a copy of the child list in insertion order.
func (r *RootNode) Nodes() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]Node, len(r.nodes))
	copy(nodes, r.nodes)
	return nodes
}

// ProcessSample advances every child by one sample and returns the raw
// sum of their contributions. A node shared with other channels is
// advanced only once per sample pass; later roots reuse its cached
// output. Contributions are scaled by the node's routing gain when a
// fade transition is in flight.
func (r *RootNode) ProcessSample() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum float64
	for _, n := range r.nodes {
		b := stateOf(n)
		if b == nil {
			sum += n.ProcessSample()
			continue
		}
		var out float64
		if b.isProcessed() {
			out = b.LastOutput()
		} else {
			out = n.ProcessSample()
			b.markProcessed(out)
		}
		sum += out * b.routingScale(r.channel)
	}
	for _, n := range r.nodes {
		if b := stateOf(n); b != nil {
			b.requestReset(r.channel)
		}
	}
	return sum
}

// Process produces n raw summed samples for this channel.
func (r *RootNode) Process(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.ProcessSample()
	}
	return out
}
