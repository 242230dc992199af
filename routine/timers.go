package routine

import (
	"pulse/graph"
	"pulse/sched"
)

// Timer registers a one-shot task firing fn after delay seconds.
// Cancelling the task before the delay elapses suppresses the callback.
func Timer(s *sched.Scheduler, name string, delay float64, fn func()) bool {
	return s.AddTask(func(p *sched.Promise) error {
		if err := p.Delay(s.SecondsToSamples(delay)); err != nil {
			return err
		}
		fn()
		return nil
	}, name, false)
}

// TimedAction registers a task running start immediately (within the
// registration call) and end once duration seconds have elapsed.
func TimedAction(s *sched.Scheduler, name string, duration float64, start, end func()) bool {
	return s.AddTask(func(p *sched.Promise) error {
		if start != nil {
			start()
		}
		if err := p.Delay(s.SecondsToSamples(duration)); err != nil {
			return err
		}
		if end != nil {
			end()
		}
		return nil
	}, name, true)
}

// TemporalActivation registers the node on the channels now and removes
// it again once seconds have elapsed. The node is detached even when the
// task is cancelled early, so an activation can never leak a
// registration.
func TemporalActivation(s *sched.Scheduler, m *graph.Manager, n graph.Node, channels []uint32, seconds float64, token graph.Token, name string) bool {
	return s.AddTask(func(p *sched.Promise) error {
		for _, ch := range channels {
			m.AddToRoot(n, token, ch)
		}
		defer func() {
			for _, ch := range channels {
				m.RemoveFromRoot(n, token, ch)
			}
		}()
		return p.Delay(s.SecondsToSamples(seconds))
	}, name, true)
}
