// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Func is the element function wrapped by a [Stage]: it transforms one
// input element into one result. Returning [ErrSkip] indicates that
// the element produced no value. Named arguments supplied via
// [WithParams] or [PipeParams] are available through [ParamsFrom].
type Func[T, R any] func(ctx context.Context, elem T) (R, error)

// ExpandFunc is the element function wrapped by an [ExpandStage]: it
// transforms one input element into a sub-sequence of results, each of
// which becomes a separate downstream element.
type ExpandFunc[T, R any] func(ctx context.Context, elem T) (iter.Seq[R], error)

// A Stage applies an element function across a lazy source, either
// serially in the caller's goroutine or spread over a fixed pool of
// workers, while preserving the input order of the source. A Stage is
// built once via [New] and may be invoked any number of times; see
// [Stage.Call] and [Stage.Pipe].
type Stage[T, R any] struct {
	cfg  *config
	fn   Func[T, R]
	info atomic.Pointer[counters]
}

// New builds a Stage around the given element function. With the
// default options, piping runs serially, skipped elements are dropped,
// and no logging occurs.
func New[T, R any](fn Func[T, R], opts ...Option) *Stage[T, R] {
	return &Stage[T, R]{
		cfg: newConfig(opts),
		fn:  fn,
	}
}

// Call applies the element function directly to a single value,
// synchronously and without any concurrency. Aside from parameter
// delivery, the behavior is identical to calling the function itself.
func (s *Stage[T, R]) Call(ctx context.Context, elem T, opts ...PipeOption) (R, error) {
	return s.fn(s.cfg.invocationParams(opts).bind(ctx), elem)
}

// Pipe binds the stage to a source and returns the resulting lazy
// output sequence. No work happens until the caller begins ranging
// over the result; stopping early tears the invocation down and
// abandons any in-flight elements.
//
// The output preserves the order of the source for any worker count.
// An element whose function fails terminates the sequence with an
// error at that element's position; nothing later is emitted. The
// returned sequence consumes src and is therefore single-use.
func (s *Stage[T, R]) Pipe(ctx context.Context, src iter.Seq[T], opts ...PipeOption) iter.Seq2[R, error] {
	params := s.cfg.invocationParams(opts)
	return func(yield func(R, error) bool) {
		inv := s.newInvocation(params)
		if s.cfg.workers == 0 {
			runSerial(ctx, inv, s.fn, src, yield)
		} else {
			runParallel(ctx, inv, s.fn, src, yield)
		}
	}
}

// PipeInfo returns throughput statistics for the stage's most recent
// pipe invocation. While an invocation is being consumed, the counts
// are live.
func (s *Stage[T, R]) PipeInfo() Stats {
	if ct := s.info.Load(); ct != nil {
		return ct.snapshot()
	}
	return Stats{}
}

func (s *Stage[T, R]) newInvocation(params Params) *invocation {
	ct := &counters{}
	s.info.Store(ct)
	return newInvocation(s.cfg, params, ct)
}

// An ExpandStage is a [Stage] whose element function fans each input
// out into a sub-sequence. The sub-sequence is drained eagerly and
// completely, in its own order, before the next upstream element is
// pulled; one level of expansion only. Expansion is defined only for
// serial execution: piping an ExpandStage built with one or more
// workers surfaces [ErrParallelExpand].
type ExpandStage[T, R any] struct {
	cfg  *config
	fn   ExpandFunc[T, R]
	info atomic.Pointer[counters]
}

// NewExpand builds an ExpandStage around the given expanding element
// function.
func NewExpand[T, R any](fn ExpandFunc[T, R], opts ...Option) *ExpandStage[T, R] {
	return &ExpandStage[T, R]{
		cfg: newConfig(opts),
		fn:  fn,
	}
}

// Call applies the element function directly to a single value,
// returning the raw sub-sequence without draining it.
func (s *ExpandStage[T, R]) Call(ctx context.Context, elem T, opts ...PipeOption) (iter.Seq[R], error) {
	return s.fn(s.cfg.invocationParams(opts).bind(ctx), elem)
}

// Pipe binds the stage to a source and returns the flattened lazy
// output sequence. See [Stage.Pipe] for the laziness and failure
// contract.
func (s *ExpandStage[T, R]) Pipe(ctx context.Context, src iter.Seq[T], opts ...PipeOption) iter.Seq2[R, error] {
	params := s.cfg.invocationParams(opts)
	return func(yield func(R, error) bool) {
		ct := &counters{}
		s.info.Store(ct)
		inv := newInvocation(s.cfg, params, ct)
		if s.cfg.workers > 0 {
			inv.logger.Debug().Int("workers", s.cfg.workers).
				Msg("rejecting parallel expansion")
			var zero R
			yield(zero, ErrParallelExpand)
			return
		}
		runSerialExpand(ctx, inv, s.fn, src, yield)
	}
}

// PipeInfo returns throughput statistics for the stage's most recent
// pipe invocation.
func (s *ExpandStage[T, R]) PipeInfo() Stats {
	if ct := s.info.Load(); ct != nil {
		return ct.snapshot()
	}
	return Stats{}
}

// invocation carries the per-Pipe state shared by the runners.
type invocation struct {
	cfg    *config
	ct     *counters
	logger zerolog.Logger
	params Params
}

func newInvocation(cfg *config, params Params, ct *counters) *invocation {
	return &invocation{
		cfg:    cfg,
		ct:     ct,
		logger: cfg.logger.With().Stringer("pipe", uuid.New()).Logger(),
		params: params,
	}
}

// admit gates each upstream pull on context liveness and the optional
// rate limiter.
func (inv *invocation) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if inv.cfg.limiter != nil {
		return inv.cfg.limiter.Wait(ctx)
	}
	return nil
}
