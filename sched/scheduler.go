// Package sched implements the sample-accurate cooperative task
// scheduler. Tasks are goroutines driven in lockstep over a channel
// handshake: the scheduler advances a sample clock once per processing
// cycle and resumes every task whose wakeup sample has arrived, blocking
// until the task parks again. Within a cycle the model is therefore
// single-threaded and deterministic.
package sched

import (
	"fmt"
	"sync"

	"pulse"
	"pulse/log"
)

type (
	// Scheduler owns the registry of active tasks and the sample clock.
	//
	// Registration and cancellation may be called from any goroutine,
	// including task bodies resumed by an in-flight cycle: mutations that
	// arrive while a cycle is running are queued and applied at the next
	// cycle boundary, so the resume loop never observes them
	// mid-iteration.
	Scheduler struct {
		logger log.Logger

		mu            sync.Mutex
		clock         *Clock
		tasks         []*Task // live tasks in registration order
		names         map[string]*Task
		pendingAdd    []*Task
		pendingCancel []*Task
		cycling       bool
		closed        bool
		nextID        uint64
	}

	// Option provides a way to set optional parameters to the scheduler.
	Option func(*Scheduler)
)

// WithLogger sets the logger. If not provided, a silent logger is used.
func WithLogger(l log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler with a sample clock at the provided rate.
func New(rate pulse.SampleRate, options ...Option) *Scheduler {
	s := &Scheduler{
		logger: log.Silent(),
		clock:  NewClock(rate),
		names:  make(map[string]*Task),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Now returns the current position of the sample clock.
func (s *Scheduler) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Pos()
}

// Rate returns the configured sample rate.
func (s *Scheduler) Rate() pulse.SampleRate {
	return s.clock.rate
}

// SecondsToSamples converts seconds to samples at the scheduler rate,
// truncating towards zero.
func (s *Scheduler) SecondsToSamples(seconds float64) uint64 {
	return s.clock.SecondsToSamples(seconds)
}

// NextTaskID returns the next value of the monotonically increasing task
// id counter. Ids are never reused, even after cancellation.
func (s *Scheduler) NextTaskID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeID()
}

func (s *Scheduler) takeID() uint64 {
	s.nextID++
	return s.nextID
}

// AddTask registers a new task. An empty name is replaced with a
// generated unique one. Name collisions with a live task are rejected:
// the call returns false and the existing task is left untouched. A dead
// task with the same name is replaced.
//
// With initialize set, the first synchronous slice of the body runs
// before AddTask returns instead of waiting for the next cycle boundary.
func (s *Scheduler) AddTask(fn TaskFunc, name string, initialize bool) bool {
	if fn == nil {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if name == "" {
		name = fmt.Sprintf("task_%d", s.takeID())
	}
	if prev, ok := s.names[name]; ok && prev.live() {
		s.mu.Unlock()
		return false
	}
	t := newTask(name, s.takeID(), fn)
	t.promise.next = s.clock.Pos()
	s.names[name] = t
	if s.cycling {
		s.pendingAdd = append(s.pendingAdd, t)
	} else {
		s.tasks = append(s.tasks, t)
	}
	pos := s.clock.Pos()
	s.mu.Unlock()

	t.start()
	if initialize {
		s.runSlice(t, pos)
	}
	return true
}

// CancelTask terminates the named task regardless of its wakeup time;
// false if no live task has this name. Destruction is deferred to the
// next cycle boundary so a cancellation can never race an in-flight
// resume of the same task.
func (s *Scheduler) CancelTask(name string) bool {
	s.mu.Lock()
	t, ok := s.names[name]
	if !ok || !t.live() {
		s.mu.Unlock()
		return false
	}
	t.promise.terminated.Store(true)
	t.promise.autoResume.Store(true)
	s.pendingCancel = append(s.pendingCancel, t)
	s.mu.Unlock()
	return true
}

// RestartTask re-registers a previously completed or cancelled task under
// the same name, re-running its body from the start; false if the name is
// unknown or the task is still running.
func (s *Scheduler) RestartTask(name string) bool {
	s.mu.Lock()
	prev, ok := s.names[name]
	if !ok || prev.live() || s.closed {
		s.mu.Unlock()
		return false
	}
	t := newTask(name, s.takeID(), prev.fn)
	t.promise.next = s.clock.Pos()
	s.names[name] = t
	if s.cycling {
		s.pendingAdd = append(s.pendingAdd, t)
	} else {
		s.tasks = append(s.tasks, t)
	}
	s.mu.Unlock()
	t.start()
	return true
}

// Task is a non-owning lookup by name, nil if the name was never
// registered. Completed tasks stay inspectable until their name is
// reused.
func (s *Scheduler) Task(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[name]
}

// TaskCount returns the number of registered tasks, including ones
// queued for the next cycle boundary.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.live() {
			n++
		}
	}
	for _, t := range s.pendingAdd {
		if t.live() {
			n++
		}
	}
	return n
}

// RunCycle executes one processing cycle: pending registry mutations are
// drained, every live task whose wakeup sample has arrived is resumed in
// registration order, completed tasks are reaped, and the clock advances
// by exactly frames.
//
// RunCycle must be called from a single goroutine, the real-time
// processing thread.
func (s *Scheduler) RunCycle(frames uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	cancels := s.pendingCancel
	s.pendingCancel = nil
	s.tasks = append(s.tasks, s.pendingAdd...)
	s.pendingAdd = nil
	snapshot := make([]*Task, len(s.tasks))
	copy(snapshot, s.tasks)
	pos := s.clock.Pos()
	s.cycling = true
	s.mu.Unlock()

	// Unwind cancelled bodies first: the resume returns only once the
	// body goroutine has exited, so no dangling resume is possible later.
	for _, t := range cancels {
		if !t.done.Load() {
			s.runSlice(t, pos)
		}
	}

	for _, t := range snapshot {
		if t.done.Load() || t.promise.terminated.Load() {
			continue
		}
		if !t.promise.autoResume.Load() {
			continue
		}
		if t.promise.next <= pos {
			s.runSlice(t, pos)
		}
	}

	s.mu.Lock()
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done.Load() {
			live = append(live, t)
		}
	}
	s.tasks = live
	s.clock.Advance(frames)
	s.cycling = false
	s.mu.Unlock()
}

// runSlice resumes one task and reports its terminal error, if any.
// Errors of a task body never propagate to the processing thread.
func (s *Scheduler) runSlice(t *Task, pos uint64) {
	t.resume(pos)
	if t.done.Load() && t.err != nil && t.err != ErrTaskTerminated {
		s.logger.Error(fmt.Sprintf("task %v: %v", t.name, t.err))
	}
}

// Close cancels all tasks and tears the scheduler down. It must not be
// called concurrently with RunCycle. The scheduler cannot be reused after
// Close.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	all := append(append([]*Task{}, s.tasks...), s.pendingAdd...)
	s.tasks = nil
	s.pendingAdd = nil
	s.pendingCancel = nil
	pos := s.clock.Pos()
	s.mu.Unlock()

	for _, t := range all {
		if t.done.Load() {
			continue
		}
		t.promise.terminated.Store(true)
		t.promise.autoResume.Store(true)
		s.runSlice(t, pos)
	}

	s.mu.Lock()
	s.names = make(map[string]*Task)
	s.mu.Unlock()
}

// live reports whether the task body has neither completed nor been
// cancelled.
func (t *Task) live() bool {
	return !t.done.Load() && !t.promise.terminated.Load()
}
