package gen

import "pulse/graph"

// Logic quantizes its upstream signal against a threshold and fires
// callbacks on the resulting boolean stream. Output is 1 while the
// signal is above the threshold, 0 otherwise.
//
// Callbacks run synchronously on the processing thread and must be
// cheap.
type Logic struct {
	graph.Base

	input     graph.Node
	threshold float64
	state     bool
	primed    bool

	whileTrue  func(float64)
	whileFalse func(float64)
	onChange   func(bool)
	onTrue     func()
	onFalse    func()
}

// NewLogic returns a threshold node.
func NewLogic(threshold float64) *Logic {
	return &Logic{threshold: threshold}
}

// SetInput wires the upstream node.
func (l *Logic) SetInput(n graph.Node) { l.input = n }

// Inputs returns the upstream nodes.
func (l *Logic) Inputs() []graph.Node {
	if l.input == nil {
		return nil
	}
	return []graph.Node{l.input}
}

// WhileTrue fires fn with the raw input every sample the state is true.
func (l *Logic) WhileTrue(fn func(float64)) { l.whileTrue = fn }

// WhileFalse fires fn with the raw input every sample the state is
// false.
func (l *Logic) WhileFalse(fn func(float64)) { l.whileFalse = fn }

// OnChange fires fn with the new state on every transition.
func (l *Logic) OnChange(fn func(bool)) { l.onChange = fn }

// OnChangeTo fires fn on transitions into the given state.
func (l *Logic) OnChangeTo(state bool, fn func()) {
	if state {
		l.onTrue = fn
	} else {
		l.onFalse = fn
	}
}

// State returns the current boolean state.
func (l *Logic) State() bool { return l.state }

// ProcessSample quantizes one upstream sample and dispatches callbacks.
// The first sample establishes the state without firing transition
// callbacks.
func (l *Logic) ProcessSample() float64 {
	var x float64
	if l.input != nil {
		x = l.input.ProcessSample()
	}
	state := x > l.threshold
	if l.primed && state != l.state {
		if l.onChange != nil {
			l.onChange(state)
		}
		if state && l.onTrue != nil {
			l.onTrue()
		}
		if !state && l.onFalse != nil {
			l.onFalse()
		}
	}
	l.primed = true
	l.state = state

	if state {
		if l.whileTrue != nil {
			l.whileTrue(x)
		}
	} else if l.whileFalse != nil {
		l.whileFalse(x)
	}
	if state {
		return 1
	}
	return 0
}

// Reset clears the boolean state, re-arming the priming sample.
func (l *Logic) Reset() {
	l.state = false
	l.primed = false
}
