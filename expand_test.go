// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"vawter.tech/pipeline"
)

// repeat yields its input v times: 1 -> [1], 2 -> [2,2], and so on.
func repeat(_ context.Context, v int) (iter.Seq[int], error) {
	return func(yield func(int) bool) {
		for range v {
			if !yield(v) {
				return
			}
		}
	}, nil
}

func TestExpandFlattens(t *testing.T) {
	r := require.New(t)

	stage := pipeline.NewExpand(repeat)
	src := slices.Values([]int{1, 2, 3})
	got, err := collect(t, stage.Pipe(t.Context(), src), false)
	r.NoError(err)
	r.Equal([]int{1, 2, 2, 3, 3, 3}, got)

	info := stage.PipeInfo()
	r.Equal(uint64(3), info.Processed)
	r.Equal(uint64(6), info.Yielded)
	r.InDelta(200.0, info.YieldPercent(), 0.001)
}

func TestExpandEmptySubSequences(t *testing.T) {
	r := require.New(t)

	// Both an empty sequence and a nil one expand to nothing.
	stage := pipeline.NewExpand(func(_ context.Context, v int) (iter.Seq[int], error) {
		if v%2 == 0 {
			return nil, nil
		}
		return slices.Values([]int{v}), nil
	})
	got, err := collect(t, stage.Pipe(t.Context(), rangeSeq(6)), false)
	r.NoError(err)
	r.Equal([]int{1, 3, 5}, got)
	r.Equal(uint64(6), stage.PipeInfo().Processed)
	r.Equal(uint64(3), stage.PipeInfo().Yielded)
}

func TestExpandSkip(t *testing.T) {
	r := require.New(t)

	skipOdd := func(_ context.Context, v int) (iter.Seq[int], error) {
		if v%2 == 1 {
			return nil, pipeline.ErrSkip
		}
		return slices.Values([]int{v, v}), nil
	}

	stage := pipeline.NewExpand(skipOdd)
	got, err := collect(t, stage.Pipe(t.Context(), rangeSeq(4)), false)
	r.NoError(err)
	r.Equal([]int{0, 0, 2, 2}, got)

	// With skipping disabled, a skipped element becomes one zero value.
	keep := pipeline.NewExpand(skipOdd, pipeline.WithSkipNone(false))
	got, err = collect(t, keep.Pipe(t.Context(), rangeSeq(4)), false)
	r.NoError(err)
	r.Equal([]int{0, 0, 0, 2, 2, 0}, got)
}

func TestExpandFailurePosition(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	stage := pipeline.NewExpand(func(ctx context.Context, v int) (iter.Seq[int], error) {
		if v == 2 {
			return nil, boom
		}
		return repeat(ctx, v)
	})

	got, err := collect(t, stage.Pipe(t.Context(), slices.Values([]int{1, 3, 2, 1})), true)
	r.ErrorIs(err, boom)
	r.ErrorContains(err, "element 2")
	r.Equal([]int{1, 3, 3, 3}, got)
}

func TestExpandEarlyBreak(t *testing.T) {
	r := require.New(t)

	stage := pipeline.NewExpand(repeat)
	var got []int
	for v, err := range stage.Pipe(t.Context(), slices.Values([]int{3, 3})) {
		r.NoError(err)
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	r.Equal([]int{3, 3}, got)
}

func TestExpandRejectsWorkers(t *testing.T) {
	r := require.New(t)

	stage := pipeline.NewExpand(repeat, pipeline.WithWorkers(4))
	got, err := collect(t, stage.Pipe(t.Context(), rangeSeq(5)), true)
	r.ErrorIs(err, pipeline.ErrParallelExpand)
	r.Empty(got)
}

func TestExpandCall(t *testing.T) {
	r := require.New(t)

	stage := pipeline.NewExpand(repeat)
	sub, err := stage.Call(t.Context(), 3)
	r.NoError(err)
	r.Equal([]int{3, 3, 3}, slices.Collect(sub))

	// Call returns the raw sub-sequence and records no pipe stats.
	r.Zero(stage.PipeInfo().Processed)
}
