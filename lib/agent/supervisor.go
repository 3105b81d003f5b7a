// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bureau-foundation/logrelay/lib/clock"
)

// restartPause separates stopping a command from starting it again,
// giving the old process time to release ports and files.
const restartPause = 100 * time.Millisecond

// defaultStopDelay bounds how long Stop waits after SIGTERM before
// the command is killed.
const defaultStopDelay = 3 * time.Second

// Launch identifies one start of the supervised command.
type Launch struct {
	PID int

	// Generation increases with every successful start, so exits of a
	// replaced process can be told apart from the current one.
	Generation uint64
}

// Exit reports a command that finished on its own or was stopped.
type Exit struct {
	Launch Launch
	Result Result

	// Err is set when waiting for the command failed.
	Err error

	// Stopped reports that Stop or Restart ended the command.
	Stopped bool
}

// Supervisor runs one command at a time and can stop and restart it.
// It is safe for concurrent use.
type Supervisor struct {
	options Options
	onExit  func(Exit)

	mu         sync.Mutex
	current    *supervised
	generation uint64
}

type supervised struct {
	launch  Launch
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewSupervisor creates a supervisor for the command in options.
// onExit, if set, is called from a background goroutine each time a
// launched command finishes. A zero options.WaitDelay means three
// seconds.
func NewSupervisor(options Options, onExit func(Exit)) *Supervisor {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.WaitDelay == 0 {
		options.WaitDelay = defaultStopDelay
	}
	return &Supervisor{options: options, onExit: onExit}
}

// Start launches the command and returns once it is running. It fails
// when a command is already running or the command cannot be started.
func (s *Supervisor) Start(ctx context.Context) (Launch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return Launch{}, errors.New("command is already running")
	}

	runContext, cancel := context.WithCancel(ctx)
	started := make(chan int, 1)
	startFailed := make(chan error, 1)
	run := &supervised{cancel: cancel, done: make(chan struct{})}

	options := s.options
	onStart := options.OnStart
	options.OnStart = func(pid int) {
		if onStart != nil {
			onStart(pid)
		}
		started <- pid
	}

	go func() {
		defer close(run.done)
		defer cancel()
		result, err := Run(runContext, options)
		if err != nil && result.PID == 0 {
			startFailed <- err
			return
		}
		s.mu.Lock()
		if s.current == run {
			s.current = nil
		}
		exit := Exit{Launch: run.launch, Result: result, Err: err, Stopped: run.stopped}
		s.mu.Unlock()
		if s.onExit != nil {
			s.onExit(exit)
		}
	}()

	select {
	case pid := <-started:
		s.generation++
		run.launch = Launch{PID: pid, Generation: s.generation}
		s.current = run
		return run.launch, nil
	case err := <-startFailed:
		return Launch{}, err
	}
}

// Running returns the current launch, if any.
func (s *Supervisor) Running() (Launch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Launch{}, false
	}
	return s.current.launch, true
}

// Stop terminates the running command and waits for it to exit.
// Stopping when nothing runs is not an error.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	run := s.current
	if run != nil {
		run.stopped = true
		s.current = nil
	}
	s.mu.Unlock()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

// Restart stops the running command, pauses briefly, and starts it
// again.
func (s *Supervisor) Restart(ctx context.Context) (Launch, error) {
	s.Stop()
	s.options.Clock.Sleep(restartPause)
	return s.Start(ctx)
}
