// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package accum

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// The worked example from Jain and Chlamtac's paper, section 2.5.
var paperSample = []float64{
	0.02, 0.15, 0.74, 3.39, 0.83, 22.37, 10.15, 15.43, 38.62, 15.92,
	34.60, 10.28, 1.47, 0.40, 0.05, 11.39, 0.27, 0.42, 0.09, 11.37,
}

func TestQuantilePaperExample(t *testing.T) {
	r := require.New(t)

	q := NewMedian()
	Feed(slices.Values(paperSample), q)

	r.Equal(20, q.N())
	r.InDelta(4.44063, q.Value(), 1e-5)

	pos, heights := q.markers()
	r.Equal([5]int{0, 5, 9, 15, 19}, pos)
	r.InDelta(0.02, heights[0], 1e-5)
	r.InDelta(0.49390, heights[1], 1e-5)
	r.InDelta(17.20390, heights[3], 1e-5)
	r.InDelta(38.62, heights[4], 1e-5)
}

func TestQuantileExtremes(t *testing.T) {
	r := require.New(t)

	// A new minimum after initialization updates the low marker.
	q := NewMedian()
	Feed(slices.Values(paperSample), q)
	q.Accumulate(-100)

	_, heights := q.markers()
	r.InDelta(-100, heights[0], 1e-12)
	r.InDelta(38.62, heights[4], 1e-12)
}

func TestQuantileSmallSamples(t *testing.T) {
	r := require.New(t)

	q := NewMedian()
	r.True(math.IsNaN(q.Value()))

	q.Accumulate(7)
	r.InDelta(7, q.Value(), 1e-12)

	// Below five values the exact sample quantile is used.
	q.Accumulate(1)
	q.Accumulate(3)
	r.InDelta(3, q.Value(), 1e-12)
}

func TestQuantileConverges(t *testing.T) {
	r := require.New(t)

	rng := rand.New(rand.NewPCG(1, 2))
	const n = 10000
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.Float64()
	}

	p90 := NewQuantile(0.9)
	median := NewMedian()
	Feed(slices.Values(values), p90, median)

	sort.Float64s(values)
	r.InDelta(values[n*9/10], p90.Value(), 0.02)
	r.InDelta(values[n/2], median.Value(), 0.02)
}

func TestQuantileRange(t *testing.T) {
	r := require.New(t)

	r.Panics(func() { NewQuantile(0) })
	r.Panics(func() { NewQuantile(1) })
	r.NotPanics(func() { NewQuantile(0.001) })
}
