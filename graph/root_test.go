package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/graph"
)

// unit emits a fixed value and counts how often it was advanced.
type unit struct {
	graph.Base
	value float64
	calls int
}

func (u *unit) ProcessSample() float64 {
	u.calls++
	return u.value
}

func TestRootRegistrationIdempotent(t *testing.T) {
	root := graph.NewRootNode(0)
	first := &unit{value: 1}
	second := &unit{value: 1}

	root.Register(first)
	root.Register(second)
	root.Register(first) // duplicate contributes once

	require.Equal(t, 2, root.Size())
	assert.Equal(t, 2.0, root.ProcessSample())
}

func TestRootInsertionOrder(t *testing.T) {
	root := graph.NewRootNode(0)
	nodes := []*unit{{value: 1}, {value: 2}, {value: 3}}
	for _, n := range nodes {
		root.Register(n)
	}
	got := root.Nodes()
	require.Len(t, got, 3)
	for i, n := range nodes {
		assert.Same(t, n, got[i])
	}
}

func TestRootUnregister(t *testing.T) {
	root := graph.NewRootNode(0)
	a := &unit{value: 0.5}
	b := &unit{value: 0.25}
	root.Register(a)
	root.Register(b)
	require.Equal(t, 0.75, root.ProcessSample())

	root.Unregister(a)
	assert.Equal(t, 0.25, root.ProcessSample())

	// unknown node is a no-op
	root.Unregister(a)
	assert.Equal(t, 1, root.Size())
}

func TestRootProcessBatch(t *testing.T) {
	root := graph.NewRootNode(0)
	root.Register(&unit{value: 0.1})
	out := root.Process(4)
	require.Len(t, out, 4)
	for _, v := range out {
		assert.InDelta(t, 0.1, v, 1e-12)
	}
}

func TestRegisterNilPanics(t *testing.T) {
	root := graph.NewRootNode(0)
	assert.Panics(t, func() { root.Register(nil) })
}
