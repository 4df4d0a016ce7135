// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"vawter.tech/pipeline/internal/safe"
)

// runSerial drives a one-result stage in the consumer's goroutine:
// pull one upstream element, apply the function, emit, repeat.
func runSerial[T, R any](
	ctx context.Context,
	inv *invocation,
	fn Func[T, R],
	src iter.Seq[T],
	yield func(R, error) bool,
) {
	inv.logger.Debug().Msg("serial execution")
	defer func() {
		inv.logger.Debug().Stringer("stats", inv.ct.snapshot()).Msg("pipe finished")
	}()

	taskCtx := inv.params.bind(ctx)
	var zero R
	seq := uint64(0)
	for elem := range src {
		if err := inv.admit(ctx); err != nil {
			yield(zero, err)
			return
		}
		inv.ct.processed.Add(1)
		ret, err := safe.Apply(func() (R, error) { return fn(taskCtx, elem) })
		switch {
		case err == nil:
			inv.ct.yielded.Add(1)
			if !yield(ret, nil) {
				return
			}
		case errors.Is(err, ErrSkip):
			if !inv.cfg.skipNone {
				inv.ct.yielded.Add(1)
				if !yield(zero, nil) {
					return
				}
			}
		default:
			inv.logger.Debug().Uint64("element", seq).Err(err).Msg("element failed")
			yield(zero, fmt.Errorf("element %d: %w", seq, err))
			return
		}
		seq++
	}
}

// runSerialExpand is the expanding variant of [runSerial]: each
// sub-sequence is drained completely before the next upstream pull.
func runSerialExpand[T, R any](
	ctx context.Context,
	inv *invocation,
	fn ExpandFunc[T, R],
	src iter.Seq[T],
	yield func(R, error) bool,
) {
	inv.logger.Debug().Msg("serial expanding execution")
	defer func() {
		inv.logger.Debug().Stringer("stats", inv.ct.snapshot()).Msg("pipe finished")
	}()

	taskCtx := inv.params.bind(ctx)
	var zero R
	seq := uint64(0)
	for elem := range src {
		if err := inv.admit(ctx); err != nil {
			yield(zero, err)
			return
		}
		inv.ct.processed.Add(1)
		sub, err := safe.Apply(func() (iter.Seq[R], error) { return fn(taskCtx, elem) })
		switch {
		case err == nil:
			// A nil sub-sequence expands to nothing.
			if sub != nil {
				for v := range sub {
					inv.ct.yielded.Add(1)
					if !yield(v, nil) {
						return
					}
				}
			}
		case errors.Is(err, ErrSkip):
			if !inv.cfg.skipNone {
				inv.ct.yielded.Add(1)
				if !yield(zero, nil) {
					return
				}
			}
		default:
			inv.logger.Debug().Uint64("element", seq).Err(err).Msg("element failed")
			yield(zero, fmt.Errorf("element %d: %w", seq, err))
			return
		}
		seq++
	}
}
