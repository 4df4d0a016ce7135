// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"vawter.tech/pipeline/internal/run"
	"vawter.tech/pipeline/internal/safe"
)

// A task is owned by the dispatcher until handed to a worker.
type task[T any] struct {
	seq  uint64
	elem T
}

// A result is produced by exactly one worker per task and consumed
// exactly once by the reorder loop.
type result[R any] struct {
	seq uint64
	val R
	err error
}

// runParallel applies the function using a pool of persistent worker
// goroutines while emitting results in strict input order.
//
// Three roles share the work. A dispatcher goroutine pulls upstream
// elements, tags each with a monotonic sequence number, and hands it to
// an idle worker; it may only run ahead while the in-flight budget
// (workers + extraCache) has free slots. Workers apply the function and
// report results in whatever order they finish. The consumer's own
// goroutine reorders: a result is emitted only when its sequence number
// is the exact next one expected, so an early finisher waits in the
// pending map behind its predecessors. Each emission frees one budget
// slot, which lets the dispatcher pull again.
func runParallel[T, R any](
	ctx context.Context,
	inv *invocation,
	fn Func[T, R],
	src iter.Seq[T],
	yield func(R, error) bool,
) {
	budget := inv.cfg.budget()
	inv.logger.Debug().
		Int("workers", inv.cfg.workers).
		Int("budget", budget).
		Msg("parallel execution")
	defer func() {
		inv.logger.Debug().Stringer("stats", inv.ct.snapshot()).Msg("pipe finished")
	}()

	taskCtx := inv.params.bind(ctx)

	g := run.NewGroup()
	tasks := make(chan task[T])
	results := make(chan result[R], budget)
	slots := make(chan struct{}, budget)

	// The group closes the results channel once the dispatcher and all
	// workers have exited, which ends the reorder loop below.
	g.Defer(func() { close(results) })

	// Dispatcher. Report a startup error if the group is somehow
	// already stopped.
	g.AddError(g.Go(func() error {
		next, stop := iter.Pull(src)
		defer stop()
		defer close(tasks)
		for seq := uint64(0); ; seq++ {
			select {
			case slots <- struct{}{}:
			case <-g.Stopping():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := inv.admit(ctx); err != nil {
				return err
			}
			elem, ok := next()
			if !ok {
				return nil
			}
			inv.ct.processed.Add(1)
			select {
			case tasks <- task[T]{seq: seq, elem: elem}:
			case <-g.Stopping():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}))

	// Workers.
	for range inv.cfg.workers {
		g.AddError(g.Go(func() error {
			for tk := range tasks {
				select {
				case <-g.Stopping():
					// Abandoned work is dropped, not computed.
					return nil
				default:
				}
				ret, err := safe.Apply(func() (R, error) { return fn(taskCtx, tk.elem) })
				select {
				case results <- result[R]{seq: tk.seq, val: ret, err: err}:
				case <-g.Stopping():
					return nil
				}
			}
			return nil
		}))
	}
	g.StopOnIdle()

	// Reorder loop, running in the consumer's goroutine.
	pending := make(map[uint64]result[R], budget)
	nextEmit := uint64(0)
	var zero R

	emit := func(res result[R]) bool {
		// Every emission decision, including a skip, retires the
		// element and frees one budget slot.
		defer func() { <-slots }()
		switch {
		case res.err == nil:
			inv.ct.yielded.Add(1)
			return yield(res.val, nil)
		case errors.Is(res.err, ErrSkip):
			if inv.cfg.skipNone {
				return true
			}
			inv.ct.yielded.Add(1)
			return yield(zero, nil)
		default:
			inv.logger.Debug().Uint64("element", res.seq).Err(res.err).Msg("element failed")
			yield(zero, fmt.Errorf("element %d: %w", res.seq, res.err))
			return false
		}
	}

	for res := range results {
		pending[res.seq] = res
		for {
			head, ok := pending[nextEmit]
			if !ok {
				break
			}
			delete(pending, nextEmit)
			nextEmit++
			if !emit(head) {
				// Failure surfaced in order, or the consumer broke
				// early. Tear the pool down without waiting for
				// in-flight work.
				g.Stop()
				return
			}
		}
	}

	// Clean drain. Surface any dispatcher error (e.g. a canceled
	// context) as a final element.
	if err := g.Wait(); err != nil {
		yield(zero, err)
	}
}
