// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package run manages the goroutines that serve a single pipe
// invocation.
package run

import (
	"errors"
	"slices"
	"sync"

	"vawter.tech/pipeline/internal/safe"
)

// ErrStopped is returned by [Group.Go] when the group is shutting
// down.
var ErrStopped = errors.New("stopped")

// A Group owns the dispatcher and worker goroutines behind one pipe
// invocation. It tracks the number of live goroutines, distributes a
// stop signal, collects errors, and runs teardown callbacks once the
// last goroutine has exited.
//
// Unlike a general task-group, a Group is strictly invocation-scoped:
// there is no nesting and no grace period. Stopping is always
// immediate, since abandoned work is discarded rather than drained.
type Group struct {
	stopping chan struct{} // Closed by the first call to stop.
	done     chan struct{} // Closed after teardown callbacks have run.

	mu struct {
		sync.Mutex
		count    int
		deferred []func() // Invoked via finishLocked.
		errs     []error
		finished bool
		idleStop bool
		stopping bool
	}
}

// NewGroup returns an empty, running Group.
func NewGroup() *Group {
	return &Group{
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AddError records non-nil errors to be returned from [Group.Wait].
func (g *Group) AddError(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, err := range errs {
		if err != nil {
			g.mu.errs = append(g.mu.errs, err)
		}
	}
}

// Defer registers a callback to run once the group has stopped and all
// goroutines have exited. Callbacks run in LIFO order. If the group has
// already finished, the callback runs immediately.
func (g *Group) Defer(fn func()) {
	g.mu.Lock()
	if !g.mu.finished {
		g.mu.deferred = append(g.mu.deferred, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// Go spawns a goroutine to execute the given function. Any error
// returned, or panic raised, is recorded for [Group.Wait]. Go returns
// [ErrStopped] without starting the goroutine if the group is already
// stopping.
func (g *Group) Go(fn func() error) error {
	if !g.apply(1) {
		return ErrStopped
	}
	go func() {
		defer g.apply(-1)
		if err := safe.Run(fn); err != nil && !errors.Is(err, ErrStopped) {
			g.AddError(err)
		}
	}()
	return nil
}

// Len returns the number of live goroutines.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mu.count
}

// Stop signals all goroutines to exit. It rejects new goroutines and
// closes the [Group.Stopping] channel. The [Group.Done] channel closes
// once the goroutine count reaches zero.
func (g *Group) Stop() {
	var deferred []func()
	defer func() { callAll(deferred) }()

	g.mu.Lock()
	defer g.mu.Unlock()
	deferred = g.softStopLocked()
}

// StopOnIdle arranges for the group to stop as soon as the goroutine
// count next reaches zero. If the count is already zero, the group
// stops immediately.
func (g *Group) StopOnIdle() {
	var deferred []func()
	defer func() { callAll(deferred) }()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.mu.idleStop = true
	if g.mu.count == 0 {
		deferred = g.softStopLocked()
	}
}

// Stopping returns a channel that closes when [Group.Stop] or an idle
// stop has been triggered.
func (g *Group) Stopping() <-chan struct{} { return g.stopping }

// Done returns a channel that closes after the group has stopped, all
// goroutines have exited, and teardown callbacks have run.
func (g *Group) Done() <-chan struct{} { return g.done }

// Wait blocks until the group has finished and returns the collected
// errors, if any.
func (g *Group) Wait() error {
	<-g.done
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.mu.errs...)
}

// Errors returns a clone of the collected errors.
func (g *Group) Errors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.mu.errs)
}

// apply adjusts the goroutine count, returning false if a positive
// delta was rejected because the group is stopping.
func (g *Group) apply(delta int) bool {
	var deferred []func()
	defer func() { callAll(deferred) }()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mu.stopping && delta >= 0 {
		return false
	}
	g.mu.count += delta
	if g.mu.count < 0 {
		// Implementation error, not user problem.
		panic("over-released")
	}
	if g.mu.count == 0 && (g.mu.stopping || g.mu.idleStop) {
		deferred = g.softStopLocked()
	}
	return true
}

// softStopLocked closes the stopping channel and, if no goroutines
// remain, captures the teardown callbacks to be executed outside the
// mutex. The done channel closes only after those callbacks have run.
func (g *Group) softStopLocked() (deferred []func()) {
	if !g.mu.stopping {
		g.mu.stopping = true
		close(g.stopping)
	}
	if g.mu.count != 0 || g.mu.finished {
		return nil
	}
	g.mu.finished = true

	// Closing the done channel is treated as the first registered
	// callback, so the LIFO execution order runs it last.
	deferred = make([]func(), len(g.mu.deferred)+1)
	deferred[0] = func() { close(g.done) }
	copy(deferred[1:], g.mu.deferred)
	g.mu.deferred = nil
	return deferred
}

// callAll executes the callbacks in reverse registration order. The
// mutex must not be held, since teardown callbacks may touch channels
// that goroutines are blocked on.
func callAll(toCall []func()) {
	for i := len(toCall) - 1; i >= 0; i-- {
		toCall[i]()
	}
}
