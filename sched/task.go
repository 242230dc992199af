package sched

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrTaskTerminated is returned from suspension points of a task which has
// been cancelled. The body is expected to unwind and return.
var ErrTaskTerminated = errors.New("task terminated")

// TaskFunc is the body of a task. It runs in its own goroutine, driven in
// lockstep by the scheduler: the body executes only between a resume and
// the next suspension point of its promise. An error result terminates
// the task; the scheduler logs it and removes the task from the registry.
type TaskFunc func(p *Promise) error

type (
	// Promise is the per-task state record shared between the task body
	// and the scheduler. It holds the next-wakeup sample, the named state
	// store and the cooperative control flags.
	Promise struct {
		next       uint64 // absolute sample of the next resume
		curr       uint64 // clock position at the last resume
		autoResume atomic.Bool
		terminated atomic.Bool

		stateMu sync.RWMutex
		state   map[string]*Value

		resume chan struct{}
		yield  chan struct{}
	}

	// Task is a named, independently resumable unit of computation owned
	// by the scheduler.
	Task struct {
		name string
		id   uint64
		fn   TaskFunc

		promise *Promise
		done    atomic.Bool
		err     error
	}
)

func newPromise() *Promise {
	p := &Promise{
		state:  make(map[string]*Value),
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	p.autoResume.Store(true)
	return p
}

func newTask(name string, id uint64, fn TaskFunc) *Task {
	return &Task{
		name:    name,
		id:      id,
		fn:      fn,
		promise: newPromise(),
	}
}

// start launches the task body. The goroutine parks immediately and
// executes its first slice on the first resume. A task cancelled before
// that first resume never runs its body at all.
func (t *Task) start() {
	p := t.promise
	go func() {
		<-p.resume
		var err error
		if p.terminated.Load() {
			err = ErrTaskTerminated
		} else {
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("task body panic: %v", r)
					}
				}()
				err = t.fn(p)
			}()
		}
		t.err = err
		t.done.Store(true)
		p.yield <- struct{}{}
	}()
}

// resume hands control to the task body and blocks until it parks again
// or completes. Must only be called by the scheduler goroutine.
func (t *Task) resume(pos uint64) {
	t.promise.curr = pos
	t.promise.resume <- struct{}{}
	<-t.promise.yield
}

// Name returns the unique name of the task.
func (t *Task) Name() string { return t.name }

// ID returns the task id. Ids increase monotonically and are never
// reused, even after cancellation.
func (t *Task) ID() uint64 { return t.id }

// State is a non-owning lookup in the task's state store, nil if the key
// was never set. The contract for external callers is read-only.
func (t *Task) State(key string) *Value { return t.promise.State(key) }

// SetState stores a value in the task's state store.
func (t *Task) SetState(key string, v *Value) { t.promise.SetState(key, v) }

// SetAutoResume controls whether the scheduler resumes the task when its
// wakeup sample arrives. A parked task is revived by setting it to true.
func (t *Task) SetAutoResume(auto bool) { t.promise.autoResume.Store(auto) }

// Done reports whether the task body has completed. Safe to call from
// any goroutine, including while a cycle is in flight.
func (t *Task) Done() bool { return t.done.Load() }

// Err returns the terminal error of a completed task body, if any. The
// error is published before Done reports true; check Done first when
// reading from another goroutine.
func (t *Task) Err() error {
	if !t.done.Load() {
		return nil
	}
	return t.err
}

// Delay suspends the task until n more samples have elapsed. A zero delay
// does not suspend: execution proceeds synchronously within the same
// resume. Returns ErrTaskTerminated once the task has been cancelled.
func (p *Promise) Delay(n uint64) error {
	if p.terminated.Load() {
		return ErrTaskTerminated
	}
	if n == 0 {
		return nil
	}
	p.next += n
	p.yield <- struct{}{}
	<-p.resume
	if p.terminated.Load() {
		return ErrTaskTerminated
	}
	return nil
}

// Park suspends the task indefinitely with auto-resume disabled. The task
// stays suspended until external code re-enables auto-resume or cancels
// it.
func (p *Promise) Park() error {
	if p.terminated.Load() {
		return ErrTaskTerminated
	}
	p.autoResume.Store(false)
	p.yield <- struct{}{}
	<-p.resume
	if p.terminated.Load() {
		return ErrTaskTerminated
	}
	return nil
}

// Terminated reports whether the task has been cancelled. Long-running
// bodies check it between suspension points.
func (p *Promise) Terminated() bool {
	return p.terminated.Load()
}

// Now returns the clock position the task was last resumed at.
func (p *Promise) Now() uint64 {
	return p.curr
}

// Next returns the absolute sample of the next scheduled resume.
func (p *Promise) Next() uint64 {
	return p.next
}

// SetState stores a value under the key. An existing box is updated in
// place so that pointers returned by State stay valid; the store never
// moves existing entries when growing.
func (p *Promise) SetState(key string, v *Value) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if box, ok := p.state[key]; ok {
		box.set(v)
		return
	}
	p.state[key] = v
}

// State returns the stable value box for the key, nil if not set.
func (p *Promise) State(key string) *Value {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state[key]
}
