package gen

import (
	"pulse"
	"pulse/graph"
)

// Gain scales its upstream input.
type Gain struct {
	graph.Base

	input graph.Node
	gain  float64
}

// NewGain returns a gain stage with the scale factor.
func NewGain(gain float64) *Gain {
	return &Gain{gain: gain}
}

// SetGain changes the scale factor.
func (g *Gain) SetGain(gain float64) { g.gain = gain }

// SetInput wires the upstream node.
func (g *Gain) SetInput(n graph.Node) { g.input = n }

// Inputs returns the upstream nodes.
func (g *Gain) Inputs() []graph.Node {
	if g.input == nil {
		return nil
	}
	return []graph.Node{g.input}
}

// ProcessSample pulls one upstream sample and scales it; silent without
// an input.
func (g *Gain) ProcessSample() float64 {
	if g.input == nil {
		return 0
	}
	return g.input.ProcessSample() * g.gain
}

// LowPass is a one-pole lowpass filter.
type LowPass struct {
	graph.Base

	input graph.Node
	coef  float64
	last  float64
}

// NewLowPass returns a one-pole filter with the smoothing coefficient in
// (0, 1]; 1 passes the input unchanged.
func NewLowPass(coef float64) *LowPass {
	return &LowPass{coef: coef}
}

// NewLowPassCutoff returns a one-pole filter approximating the cutoff
// frequency at the sample rate.
func NewLowPassCutoff(rate pulse.SampleRate, cutoff float64) *LowPass {
	coef := cutoff / (cutoff + float64(rate))
	return &LowPass{coef: coef}
}

// SetInput wires the upstream node.
func (f *LowPass) SetInput(n graph.Node) { f.input = n }

// Inputs returns the upstream nodes.
func (f *LowPass) Inputs() []graph.Node {
	if f.input == nil {
		return nil
	}
	return []graph.Node{f.input}
}

// ProcessSample filters one upstream sample.
func (f *LowPass) ProcessSample() float64 {
	if f.input == nil {
		return 0
	}
	x := f.input.ProcessSample()
	f.last += f.coef * (x - f.last)
	return f.last
}

// Reset clears the filter memory.
func (f *LowPass) Reset() { f.last = 0 }

// Chain wires processors in series: the first element feeds the second
// and so on. The chain itself processes as its last element.
type Chain struct {
	graph.Base

	nodes []graph.Node
}

// NewChain wires the nodes in order. Every node after the first must
// accept an input.
func NewChain(nodes ...graph.Node) *Chain {
	for i := 1; i < len(nodes); i++ {
		if in, ok := nodes[i].(graph.Input); ok {
			in.SetInput(nodes[i-1])
		}
	}
	return &Chain{nodes: nodes}
}

// Inputs returns the chain members.
func (c *Chain) Inputs() []graph.Node { return c.nodes }

// ProcessSample pulls one sample through the whole chain.
func (c *Chain) ProcessSample() float64 {
	if len(c.nodes) == 0 {
		return 0
	}
	return c.nodes[len(c.nodes)-1].ProcessSample()
}
