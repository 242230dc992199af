// Package engine glues the scheduler, the node graph and the sinks into
// one real-time processing loop: advance the scheduler, update routing
// fades, process every audio channel and hand the buffers to the
// registered sinks.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"pulse"
	"pulse/config"
	"pulse/graph"
	"pulse/log"
	"pulse/sched"
	"pulse/signal"
)

// ErrAlreadyRunning is returned when Start or Render is called on a
// running engine.
var ErrAlreadyRunning = errors.New("engine already running")

type (
	// Engine owns the scheduler, the node graph manager and the buffer
	// manager for the lifetime of a session.
	Engine struct {
		pulse.UID

		logger    log.Logger
		cfg       config.Config
		scheduler *sched.Scheduler
		nodes     *graph.Manager
		buffers   *BufferManager

		mu      sync.Mutex
		running bool
		stop    chan struct{}
		done    chan struct{}
	}

	// Option provides a way to set optional engine parameters.
	Option func(*Engine)
)

// WithLogger sets the logger of the engine and its scheduler. If not
// provided, a silent logger is used.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New constructs an engine from the configuration. Scheduler and graph
// manager live for the engine's lifetime.
func New(cfg config.Config, options ...Option) *Engine {
	e := &Engine{
		UID:     pulse.NewUID(),
		logger:  log.Silent(),
		cfg:     cfg,
		buffers: NewBufferManager(),
	}
	for _, option := range options {
		option(e)
	}
	e.scheduler = sched.New(cfg.SampleRate, sched.WithLogger(e.logger))
	e.nodes = graph.NewManager(graph.WithManagerLogger(e.logger))
	return e
}

// Scheduler returns the engine's task scheduler.
func (e *Engine) Scheduler() *sched.Scheduler { return e.scheduler }

// Graph returns the engine's node graph manager.
func (e *Engine) Graph() *graph.Manager { return e.nodes }

// Buffers returns the engine's buffer manager.
func (e *Engine) Buffers() *BufferManager { return e.buffers }

// Config returns the engine configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Cycle runs one processing cycle for the frame count: the scheduler
// resumes due tasks and advances its clock, routing fades move one step,
// and every audio channel renders frames normalized samples.
func (e *Engine) Cycle(frames int) signal.Float64 {
	e.scheduler.RunCycle(uint64(frames))
	e.nodes.UpdateRoutingStates(graph.AudioRate)
	e.nodes.CleanupCompletedRouting(graph.AudioRate)

	buf := make(signal.Float64, e.cfg.NumChannels)
	for ch := 0; ch < int(e.cfg.NumChannels); ch++ {
		buf[ch] = e.nodes.ProcessChannel(graph.AudioRate, uint32(ch), frames)
	}
	return buf
}

// Start validates the graph, opens the audio backend sinks and begins
// streaming cycles until Stop. Open failures propagate and leave the
// scheduler and graph untouched.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	if err := e.nodes.Validate(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	if err := e.buffers.Open(graph.AudioBackend, e.cfg.SampleRate, e.cfg.NumChannels, e.cfg.BufferSize); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.run()
	e.logger.Info(fmt.Sprintf("engine %v started: %v Hz, %v channels", e.ID(), e.cfg.SampleRate, e.cfg.NumChannels))
	return nil
}

func (e *Engine) run() {
	defer close(e.done)
	frames := int(e.cfg.BufferSize)
	for {
		select {
		case <-e.stop:
			return
		default:
		}
		buf := e.Cycle(frames)
		if err := e.buffers.Write(graph.AudioBackend, buf); err != nil {
			e.logger.Error(fmt.Sprintf("engine %v: sink write: %v", e.ID(), err))
			return
		}
	}
}

// Stop ends streaming, flushes the sinks, cancels all tasks and releases
// all nodes. A stopped engine stays inspectable but cannot be restarted.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	err := e.buffers.Flush(graph.AudioBackend)
	e.scheduler.Close()
	e.nodes.Clear()
	e.logger.Info(fmt.Sprintf("engine %v stopped", e.ID()))
	return err
}

// Render runs the engine offline for the duration, writing every cycle
// to the audio backend sinks. It cannot run concurrently with Start.
func (e *Engine) Render(seconds float64) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := e.nodes.Validate(); err != nil {
		return fmt.Errorf("engine render: %w", err)
	}
	if err := e.buffers.Open(graph.AudioBackend, e.cfg.SampleRate, e.cfg.NumChannels, e.cfg.BufferSize); err != nil {
		return fmt.Errorf("engine render: %w", err)
	}

	frames := uint64(e.cfg.BufferSize)
	total := e.scheduler.SecondsToSamples(seconds)
	for rendered := uint64(0); rendered < total; rendered += frames {
		n := frames
		if remaining := total - rendered; remaining < n {
			n = remaining
		}
		buf := e.Cycle(int(n))
		if err := e.buffers.Write(graph.AudioBackend, buf); err != nil {
			_ = e.buffers.Flush(graph.AudioBackend)
			return fmt.Errorf("engine render: %w", err)
		}
	}
	return e.buffers.Flush(graph.AudioBackend)
}
