package routine

import (
	"pulse/gen"
	"pulse/sched"
)

// Gate registers a task sampling the logic node every cycle and calling
// fn whenever the state is true. Runs until cancelled.
func Gate(s *sched.Scheduler, name string, logic *gen.Logic, fn func()) bool {
	return s.AddTask(func(p *sched.Promise) error {
		for {
			if logic.State() {
				fn()
			}
			if err := p.Delay(1); err != nil {
				return err
			}
		}
	}, name, false)
}

// Trigger registers a task firing fn on every rising edge of the logic
// node's state, observed once per cycle. Runs until cancelled.
func Trigger(s *sched.Scheduler, name string, logic *gen.Logic, fn func()) bool {
	return s.AddTask(func(p *sched.Promise) error {
		prev := logic.State()
		for {
			cur := logic.State()
			if cur && !prev {
				fn()
			}
			prev = cur
			if err := p.Delay(1); err != nil {
				return err
			}
		}
	}, name, false)
}

// Toggle registers a task flipping a boolean on every rising edge of the
// logic node's state, observed once per cycle, and reporting each flip
// to fn. The toggle state is published under the "toggle" state key.
// Runs until cancelled.
func Toggle(s *sched.Scheduler, name string, logic *gen.Logic, fn func(bool)) bool {
	return s.AddTask(func(p *sched.Promise) error {
		state := sched.NewBool(false)
		p.SetState("toggle", state)
		var on bool
		prev := logic.State()
		for {
			cur := logic.State()
			if cur && !prev {
				on = !on
				state.SetBool(on)
				if fn != nil {
					fn(on)
				}
			}
			prev = cur
			if err := p.Delay(1); err != nil {
				return err
			}
		}
	}, name, false)
}
