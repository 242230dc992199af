// Package routine builds common task patterns on top of a scheduler:
// metronomes, timed sequences, value ramps, pattern players and
// logic-driven triggers. Factories register the task and return the
// scheduler's registration result.
package routine

import (
	"pulse/sched"
)

// Metro registers a periodic task firing fn every interval seconds,
// starting at the current clock position. It publishes the fire count
// under the "count" state key and runs until cancelled. Returns false on
// a name collision or a sub-sample interval.
func Metro(s *sched.Scheduler, name string, interval float64, fn func()) bool {
	period := s.SecondsToSamples(interval)
	if period == 0 {
		return false
	}
	return s.AddTask(func(p *sched.Promise) error {
		count := sched.NewInt(0)
		p.SetState("count", count)
		var fired int64
		for !p.Terminated() {
			fn()
			fired++
			count.SetInt(fired)
			if err := p.Delay(period); err != nil {
				return err
			}
		}
		return nil
	}, name, false)
}

// Step is one element of a Sequence: wait After seconds, then fire Fn.
type Step struct {
	After float64
	Fn    func()
}

// Sequence registers a task firing the steps one after another, each
// relative to the previous one. The task completes after the last step.
func Sequence(s *sched.Scheduler, name string, steps []Step) bool {
	return s.AddTask(func(p *sched.Promise) error {
		for _, step := range steps {
			if err := p.Delay(s.SecondsToSamples(step.After)); err != nil {
				return err
			}
			if step.Fn != nil {
				step.Fn()
			}
		}
		return nil
	}, name, false)
}

// Line registers a linear ramp from one value to another over duration
// seconds, updating every step seconds. The ramp publishes its position
// under the "current_value" state key.
//
// A restartable line parks once the ramp completes instead of
// terminating. Setting the "restart" state key to true and re-enabling
// auto-resume re-arms it: the ramp runs again from the start.
func Line(s *sched.Scheduler, name string, from, to, duration, step float64, restartable bool) bool {
	total := s.SecondsToSamples(duration)
	period := s.SecondsToSamples(step)
	if period == 0 {
		period = 1
	}
	return s.AddTask(func(p *sched.Promise) error {
		value := sched.NewFloat(from)
		p.SetState("current_value", value)
		restart := sched.NewBool(false)
		p.SetState("restart", restart)
		for {
			value.SetFloat(from)
			var elapsed uint64
			for elapsed < total {
				if err := p.Delay(period); err != nil {
					return err
				}
				elapsed += period
				if elapsed > total {
					elapsed = total
				}
				value.SetFloat(from + (to-from)*float64(elapsed)/float64(total))
			}
			value.SetFloat(to)
			if !restartable {
				return nil
			}
			for {
				restart.SetBool(false)
				if err := p.Park(); err != nil {
					return err
				}
				if again, _ := restart.Bool(); again {
					break
				}
			}
		}
	}, name, false)
}

// Pattern registers an index-driven player: next produces the payload
// for each index, fn consumes it, one step per interval seconds. A nil
// payload ends the task.
func Pattern(s *sched.Scheduler, name string, next func(i int) *sched.Value, fn func(*sched.Value), interval float64) bool {
	period := s.SecondsToSamples(interval)
	if period == 0 {
		return false
	}
	return s.AddTask(func(p *sched.Promise) error {
		for i := 0; ; i++ {
			v := next(i)
			if v == nil {
				return nil
			}
			fn(v)
			if err := p.Delay(period); err != nil {
				return err
			}
		}
	}, name, false)
}
