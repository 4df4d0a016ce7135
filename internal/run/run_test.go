// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package run

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"vawter.tech/pipeline/internal/safe"
)

func TestStopOnIdle(t *testing.T) {
	r := require.New(t)

	g := NewGroup()
	release := make(chan struct{})
	r.NoError(g.Go(func() error {
		<-release
		return nil
	}))
	r.Equal(1, g.Len())

	g.StopOnIdle()
	select {
	case <-g.Done():
		r.Fail("finished with a live goroutine")
	default:
	}

	close(release)
	r.NoError(g.Wait())
	r.Equal(0, g.Len())
}

func TestStopRejectsNewGoroutines(t *testing.T) {
	r := require.New(t)

	g := NewGroup()
	r.NoError(g.Go(func() error {
		<-g.Stopping()
		return nil
	}))

	g.Stop()
	r.ErrorIs(g.Go(func() error { return nil }), ErrStopped)
	r.NoError(g.Wait())
}

func TestErrorCollection(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	g := NewGroup()
	r.NoError(g.Go(func() error { return boom }))
	// ErrStopped is an expected exit reason, not a failure.
	r.NoError(g.Go(func() error { return ErrStopped }))
	g.StopOnIdle()

	err := g.Wait()
	r.ErrorIs(err, boom)
	r.Len(g.Errors(), 1)
}

func TestPanicBecomesError(t *testing.T) {
	r := require.New(t)

	g := NewGroup()
	r.NoError(g.Go(func() error { panic("kaboom") }))
	g.StopOnIdle()

	err := g.Wait()
	recovered := &safe.RecoveredError{}
	r.ErrorAs(err, &recovered)
}

func TestDeferOrdering(t *testing.T) {
	r := require.New(t)

	g := NewGroup()
	var order []int
	g.Defer(func() { order = append(order, 1) })
	g.Defer(func() { order = append(order, 2) })

	r.NoError(g.Go(func() error { return nil }))
	g.StopOnIdle()
	r.NoError(g.Wait())

	// LIFO, and all before Done closes.
	r.Equal([]int{2, 1}, order)

	// Late registration on a finished group runs immediately.
	var late bool
	g.Defer(func() { late = true })
	r.True(late)
}

func TestIdleStopOnEmptyGroup(t *testing.T) {
	r := require.New(t)

	g := NewGroup()
	g.StopOnIdle()
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		r.Fail("empty group did not finish")
	}
	r.NoError(g.Wait())
}

func TestDeferredCanUnblockGoroutine(t *testing.T) {
	r := require.New(t)

	// A teardown callback may close a channel that the consumer of the
	// group is blocked on, so callbacks must run outside the mutex and
	// before Done closes.
	g := NewGroup()
	ch := make(chan struct{})
	g.Defer(func() { close(ch) })

	r.NoError(g.Go(func() error {
		<-g.Stopping()
		return nil
	}))
	g.Stop()

	select {
	case <-ch:
	case <-time.After(time.Second):
		r.Fail("teardown callback did not run")
	}
	r.NoError(g.Wait())
}
