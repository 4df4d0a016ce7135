// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package pipeline applies a single-element function across a lazy
// sequence, serially or in parallel, without disturbing the order of
// the sequence.
//
// A [Stage] wraps a function of one element. Calling [Stage.Pipe]
// binds the stage to an [iter.Seq] source and returns a new lazy
// sequence; nothing executes until the caller ranges over it.
// [Stage.Call] applies the function to a single value directly, with
// no concurrency involved.
//
//	double := pipeline.New(func(_ context.Context, v int) (int, error) {
//	    return 2 * v, nil
//	})
//	for v, err := range double.Pipe(ctx, slices.Values(input)) { ... }
//
// # Serial and parallel execution
//
// By default a piped stage runs in the consumer's goroutine: each pull
// on the output pulls one upstream element, applies the function, and
// yields. [WithWorkers] spreads the function across a fixed pool of
// worker goroutines instead. Output order is preserved in either mode:
// a result is emitted only when every earlier element has been
// emitted, no matter how the workers' completion times interleave.
//
// Backpressure is bounded. At most workers + extraCache elements are
// in flight (pulled from upstream but not yet emitted) at any moment,
// so memory use is independent of the source length. [WithExtraCache]
// widens the window to absorb uneven per-element latency without
// adding workers.
//
// # Skipping elements
//
// The element function returns [ErrSkip] to produce no output for an
// input. Skipped elements are dropped from the output; building the
// stage with WithSkipNone(false) emits the result type's zero value in
// their place instead.
//
// # Expansion
//
// [NewExpand] builds a stage whose function fans one input out into a
// sub-sequence. The sub-sequence is drained completely, in its own
// order, before the next upstream element is pulled. Expansion is a
// serial-only feature: sub-sequences cannot cross the worker boundary,
// and a parallel pipe of an [ExpandStage] surfaces
// [ErrParallelExpand].
//
// # Failure
//
// Errors are never swallowed and never reordered. If the function
// fails for some element (a panic is captured as a [RecoveredError]),
// the error is yielded at exactly the position that element's result
// would have occupied, and the sequence ends there.
// In-flight work for later elements is abandoned. Ending the range
// early from the consumer side tears the invocation down the same way.
//
// # Parameters
//
// Named arguments travel alongside the element: fix them per stage
// with [WithParams] or per invocation with [PipeParams], and read them
// inside the function via [ParamsFrom]. Invocation values override
// stage values key by key.
//
// # Introspection
//
// [Stage.PipeInfo] reports how many elements the most recent
// invocation pulled from upstream and how many it emitted, along with
// the yield ratio. [WithLogger] traces execution mode and throughput
// through a [zerolog.Logger] at debug level.
//
// # Related packages
//
// The [vawter.tech/pipeline/accum] package provides streaming
// accumulators (mean, variance, quantile) as pipeline endpoints,
// [vawter.tech/pipeline/stream] provides small sequence helpers, and
// [vawter.tech/pipeline/remote] moves sequences between processes
// element by element.
package pipeline
