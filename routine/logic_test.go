package routine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/gen"
	"pulse/graph"
	"pulse/routine"
	"pulse/sched"
)

// observed builds a logic node over a controllable source and advances
// it one sample so the state is established.
func observed(value float64) (*gen.Constant, *gen.Logic) {
	src := gen.NewConstant(value)
	l := gen.NewLogic(0.5)
	l.SetInput(src)
	l.ProcessSample()
	return src, l
}

func TestGate(t *testing.T) {
	s := sched.New(1000)
	defer s.Close()
	src, l := observed(0)
	fired := 0
	require.True(t, routine.Gate(s, "gate", l, func() { fired++ }))

	s.RunCycle(1)
	assert.Zero(t, fired)

	src.SetValue(1)
	l.ProcessSample()
	for i := 0; i < 3; i++ {
		s.RunCycle(1)
	}
	assert.Equal(t, 3, fired)

	src.SetValue(0)
	l.ProcessSample()
	s.RunCycle(1)
	assert.Equal(t, 3, fired)
}

func TestTrigger(t *testing.T) {
	s := sched.New(1000)
	defer s.Close()
	src, l := observed(0)
	fired := 0
	require.True(t, routine.Trigger(s, "trig", l, func() { fired++ }))

	s.RunCycle(1)
	assert.Zero(t, fired)

	// a rising edge fires once, holding does not re-fire
	src.SetValue(1)
	l.ProcessSample()
	s.RunCycle(1)
	s.RunCycle(1)
	assert.Equal(t, 1, fired)

	src.SetValue(0)
	l.ProcessSample()
	s.RunCycle(1)
	src.SetValue(1)
	l.ProcessSample()
	s.RunCycle(1)
	assert.Equal(t, 2, fired)
}

func TestToggle(t *testing.T) {
	s := sched.New(1000)
	defer s.Close()
	src, l := observed(0)
	var flips []bool
	require.True(t, routine.Toggle(s, "tgl", l, func(on bool) { flips = append(flips, on) }))

	s.RunCycle(1)
	box := s.Task("tgl").State("toggle")
	require.NotNil(t, box)

	rise := func() {
		src.SetValue(1)
		l.ProcessSample()
		s.RunCycle(1)
		src.SetValue(0)
		l.ProcessSample()
		s.RunCycle(1)
	}
	rise()
	on, _ := box.Bool()
	assert.True(t, on)
	rise()
	on, _ = box.Bool()
	assert.False(t, on)
	assert.Equal(t, []bool{true, false}, flips)
}

func TestTemporalActivation(t *testing.T) {
	s := sched.New(1000)
	defer s.Close()
	m := graph.NewManager()
	n := gen.NewConstant(0.5)

	require.True(t, routine.TemporalActivation(s, m, n, []uint32{0, 1}, 0.01, graph.AudioRate, "burst"))
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 0).Size())
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 1).Size())

	s.RunCycle(10)
	assert.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 0).Size())
	s.RunCycle(10)
	assert.Zero(t, m.RootNodeFor(graph.AudioRate, 0).Size())
	assert.Zero(t, m.RootNodeFor(graph.AudioRate, 1).Size())
	assert.True(t, s.Task("burst").Done())
}

func TestTemporalActivationCancelDetaches(t *testing.T) {
	s := sched.New(1000)
	defer s.Close()
	m := graph.NewManager()
	n := gen.NewConstant(0.5)

	require.True(t, routine.TemporalActivation(s, m, n, []uint32{0}, 1, graph.AudioRate, "burst"))
	require.Equal(t, 1, m.RootNodeFor(graph.AudioRate, 0).Size())

	require.True(t, s.CancelTask("burst"))
	s.RunCycle(1)
	assert.Zero(t, m.RootNodeFor(graph.AudioRate, 0).Size())
}
