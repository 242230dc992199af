package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/graph"
)

func TestRouteNodeFadesInEqualSteps(t *testing.T) {
	m := graph.NewManager()
	n := &unit{value: 1}
	m.AddToRoot(n, graph.AudioRate, 0)

	m.RouteNodeToChannels(n, []uint32{1, 2}, 4, graph.AudioRate)

	// the node is attached to the targets right away, at gain 0
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 1).Size())
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 2).Size())

	state := n.Routing()
	require.NotNil(t, state)
	assert.Equal(t, 0.0, state.Amount(1))
	assert.Equal(t, 1.0, state.Amount(0))

	expected := []float64{0.25, 0.5, 0.75, 1}
	for i, want := range expected {
		m.UpdateRoutingStates(graph.AudioRate)
		assert.InDelta(t, want, state.Amount(1), 1e-12, "step %d", i)
		assert.InDelta(t, want, state.Amount(2), 1e-12, "step %d", i)
		assert.InDelta(t, 1-want, state.Amount(0), 1e-12, "step %d", i)
	}
	assert.Equal(t, graph.RoutingCompleted, state.Phase())

	// cleanup detaches the faded-out source channel and reports no
	// transitions pending
	pending := m.CleanupCompletedRouting(graph.AudioRate)
	assert.Zero(t, pending)
	assert.Zero(t, m.RootNodeFor(graph.AudioRate, 0).Size())
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 1).Size())
	assert.Nil(t, n.Routing())
}

func TestRouteFadeScalesContribution(t *testing.T) {
	m := graph.NewManager()
	n := &unit{value: 0.8}
	m.AddToRoot(n, graph.AudioRate, 0)
	m.RouteNodeToChannels(n, []uint32{0, 1}, 2, graph.AudioRate)

	m.UpdateRoutingStates(graph.AudioRate) // halfway

	// channel 0 is in both masks and stays at full gain
	assert.InDelta(t, 0.8, m.ProcessSample(graph.AudioRate, 0), 1e-12)
	assert.InDelta(t, 0.4, m.ProcessSample(graph.AudioRate, 1), 1e-12)

	m.UpdateRoutingStates(graph.AudioRate)
	assert.InDelta(t, 0.8, m.ProcessSample(graph.AudioRate, 0), 1e-12)
	assert.InDelta(t, 0.8, m.ProcessSample(graph.AudioRate, 1), 1e-12)
}

func TestRouteImmediate(t *testing.T) {
	m := graph.NewManager()
	n := &unit{value: 0.5}
	m.AddToRoot(n, graph.AudioRate, 0)

	m.RouteNodeToChannels(n, []uint32{1}, 0, graph.AudioRate)

	assert.Zero(t, m.RootNodeFor(graph.AudioRate, 0).Size())
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 1).Size())
	assert.Nil(t, n.Routing())
	assert.InDelta(t, 0.5, m.ProcessSample(graph.AudioRate, 1), 1e-12)
}

func TestCleanupCountsPendingTransitions(t *testing.T) {
	m := graph.NewManager()
	a := &unit{value: 1}
	b := &unit{value: 1}
	m.AddToRoot(a, graph.AudioRate, 0)
	m.AddToRoot(b, graph.AudioRate, 0)

	m.RouteNodeToChannels(a, []uint32{1}, 2, graph.AudioRate)
	m.RouteNodeToChannels(b, []uint32{1}, 8, graph.AudioRate)

	m.UpdateRoutingStates(graph.AudioRate)
	m.UpdateRoutingStates(graph.AudioRate)

	// a completed, b still fading
	assert.Equal(t, 1, m.CleanupCompletedRouting(graph.AudioRate))
}
