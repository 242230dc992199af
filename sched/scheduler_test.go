package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pulse"
	"pulse/sched"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClockMonotonicity(t *testing.T) {
	s := sched.New(48000)
	defer s.Close()
	assert.Equal(t, uint64(0), s.Now())
	for _, frames := range []uint64{480, 1, 13, 0, 44100} {
		before := s.Now()
		s.RunCycle(frames)
		assert.Equal(t, before+frames, s.Now())
	}
}

func TestSecondsToSamples(t *testing.T) {
	tests := []struct {
		description string
		rate        int
		seconds     float64
		expected    uint64
	}{
		{
			description: "zero",
			rate:        44100,
			seconds:     0,
			expected:    0,
		},
		{
			description: "negative clamps to zero",
			rate:        44100,
			seconds:     -1,
			expected:    0,
		},
		{
			description: "metro interval",
			rate:        48000,
			seconds:     0.01,
			expected:    480,
		},
		{
			description: "truncates sub-sample remainder",
			rate:        44100,
			seconds:     0.0001,
			expected:    4,
		},
	}
	for _, test := range tests {
		s := sched.New(pulse.SampleRate(test.rate))
		assert.Equal(t, test.expected, s.SecondsToSamples(test.seconds), test.description)
		s.Close()
	}
}

func TestAddTaskCollision(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	fired := make([]int, 2)
	ok := s.AddTask(func(p *sched.Promise) error {
		for !p.Terminated() {
			fired[0]++
			if err := p.Delay(10); err != nil {
				return err
			}
		}
		return nil
	}, "dup", false)
	require.True(t, ok)

	// second registration under a live name is rejected
	ok = s.AddTask(func(p *sched.Promise) error {
		fired[1]++
		return nil
	}, "dup", false)
	assert.False(t, ok)

	s.RunCycle(1)
	assert.Equal(t, 1, fired[0])
	assert.Zero(t, fired[1])
}

func TestZeroDelayDoesNotSuspend(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	var steps []string
	ok := s.AddTask(func(p *sched.Promise) error {
		steps = append(steps, "before")
		if err := p.Delay(0); err != nil {
			return err
		}
		steps = append(steps, "after")
		return nil
	}, "zero", false)
	require.True(t, ok)

	s.RunCycle(1)
	assert.Equal(t, []string{"before", "after"}, steps)
	assert.True(t, s.Task("zero").Done())
}

func TestNoResumeBeforeWakeup(t *testing.T) {
	s := sched.New(48000)
	defer s.Close()
	fired := 0
	s.AddTask(func(p *sched.Promise) error {
		if err := p.Delay(100); err != nil {
			return err
		}
		fired++
		return nil
	}, "later", false)

	// cycle starts at 0, 30, 60, 90: all below the wakeup sample
	for i := 0; i < 4; i++ {
		s.RunCycle(30)
		assert.Zero(t, fired)
	}
	// cycle starting at 120 is the first with clock >= 100
	s.RunCycle(30)
	assert.Equal(t, 1, fired)
}

func TestCancelRestartRoundTrip(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	var out []int
	ok := s.AddTask(func(p *sched.Promise) error {
		for i := 0; ; i++ {
			out = append(out, i)
			if err := p.Delay(10); err != nil {
				return err
			}
		}
	}, "ramp", false)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		s.RunCycle(10)
	}
	require.Equal(t, []int{0, 1, 2}, out)

	require.True(t, s.CancelTask("ramp"))
	require.True(t, s.RestartTask("ramp"))
	for i := 0; i < 3; i++ {
		s.RunCycle(10)
	}

	// restarted task replays the same observable sequence from t=0
	require.Len(t, out, 6)
	assert.Equal(t, out[:3], out[3:])
}

func TestCancelBeforeFirstResume(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	fired := 0
	require.True(t, s.AddTask(func(p *sched.Promise) error {
		fired++
		return p.Delay(10)
	}, "doomed", false))
	require.True(t, s.CancelTask("doomed"))

	// the body never ran: cancellation precedes the first resume
	s.RunCycle(1)
	assert.Zero(t, fired)
	assert.True(t, s.Task("doomed").Done())
	assert.ErrorIs(t, s.Task("doomed").Err(), sched.ErrTaskTerminated)
}

func TestDoneConcurrentWithCycle(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	s.AddTask(func(p *sched.Promise) error {
		return p.Delay(5)
	}, "obs", false)
	tk := s.Task("obs")

	// poll completion from another goroutine while cycles run
	stop := make(chan struct{})
	seen := make(chan bool)
	go func() {
		done := false
		for {
			select {
			case <-stop:
				seen <- done
				return
			default:
				if tk.Done() {
					done = true
				}
			}
		}
	}()
	for i := 0; i < 10; i++ {
		s.RunCycle(1)
	}
	close(stop)
	assert.True(t, <-seen)
	assert.NoError(t, tk.Err())
}

func TestCancelUnknown(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	assert.False(t, s.CancelTask("nope"))
	assert.False(t, s.RestartTask("nope"))
}

func TestTaskIDsNeverReused(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	s.AddTask(func(p *sched.Promise) error { return nil }, "a", false)
	first := s.Task("a").ID()
	s.RunCycle(1) // completes the task

	require.True(t, s.RestartTask("a"))
	assert.Greater(t, s.Task("a").ID(), first)
	assert.Greater(t, s.NextTaskID(), s.Task("a").ID())
}

func TestBodyPanicIsolation(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	good := 0
	s.AddTask(func(p *sched.Promise) error {
		panic("boom")
	}, "bad", false)
	s.AddTask(func(p *sched.Promise) error {
		for !p.Terminated() {
			good++
			if err := p.Delay(10); err != nil {
				return err
			}
		}
		return nil
	}, "good", false)

	s.RunCycle(1)
	assert.Equal(t, 1, good)
	require.True(t, s.Task("bad").Done())
	assert.Error(t, s.Task("bad").Err())
	assert.Equal(t, 1, s.TaskCount())

	s.RunCycle(10) // advances the clock past the next wakeup
	s.RunCycle(1)
	assert.Equal(t, 2, good)
}

func TestParkAndRevive(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	fired := 0
	s.AddTask(func(p *sched.Promise) error {
		if err := p.Park(); err != nil {
			return err
		}
		fired++
		return nil
	}, "parked", false)

	for i := 0; i < 3; i++ {
		s.RunCycle(10)
	}
	assert.Zero(t, fired)

	s.Task("parked").SetAutoResume(true)
	s.RunCycle(10)
	assert.Equal(t, 1, fired)
	assert.True(t, s.Task("parked").Done())
}

func TestInitializeRunsFirstSlice(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	fired := 0
	ok := s.AddTask(func(p *sched.Promise) error {
		fired++
		return p.Delay(10)
	}, "init", true)
	require.True(t, ok)
	assert.Equal(t, 1, fired)
}

func TestStatePointerStability(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	s.AddTask(func(p *sched.Promise) error {
		p.SetState("value", sched.NewFloat(0))
		for i := 1; i <= 64; i++ {
			// growing the store must not move existing boxes
			p.SetState(keyed(i), sched.NewInt(int64(i)))
			p.SetState("value", sched.NewFloat(float64(i)))
			if err := p.Delay(1); err != nil {
				return err
			}
		}
		return nil
	}, "grower", true)

	box := s.Task("grower").State("value")
	require.NotNil(t, box)
	for i := 0; i < 64; i++ {
		s.RunCycle(1)
	}
	v, ok := box.Float()
	require.True(t, ok)
	assert.Equal(t, float64(64), v)
	assert.Same(t, box, s.Task("grower").State("value"))
}

func TestMutationDuringCycle(t *testing.T) {
	s := sched.New(44100)
	defer s.Close()
	var aFired, bFired int
	s.AddTask(func(p *sched.Promise) error {
		aFired++
		// registering from a task body is applied at the cycle boundary
		s.AddTask(func(p *sched.Promise) error {
			bFired++
			return nil
		}, "b", false)
		return nil
	}, "a", false)

	s.RunCycle(1)
	assert.Equal(t, 1, aFired)
	assert.Zero(t, bFired)
	s.RunCycle(1)
	assert.Equal(t, 1, bFired)
}

func TestCloseCancelsAll(t *testing.T) {
	s := sched.New(44100)
	for i := 0; i < 5; i++ {
		s.AddTask(func(p *sched.Promise) error {
			for {
				if err := p.Delay(10); err != nil {
					return err
				}
			}
		}, "", false)
	}
	s.RunCycle(1)
	s.Close()
	assert.False(t, s.AddTask(func(p *sched.Promise) error { return nil }, "", false))
	goleak.VerifyNone(t)
}

func keyed(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i/26))
}
