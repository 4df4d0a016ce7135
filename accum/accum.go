// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package accum provides streaming accumulators that can serve as
// endpoints of a pipeline.
//
// An accumulator consumes one value at a time and maintains a running
// summary (mean, variance, quantile) in constant memory. All types are
// ready to use at their zero value unless a constructor is documented.
// Accumulators are not safe for concurrent use; feed each one from a
// single goroutine.
package accum

import (
	"iter"
	"math"
)

// An Accumulator consumes a stream of values and maintains a running
// summary.
type Accumulator interface {
	// Accumulate folds one value into the summary.
	Accumulate(v float64)
	// Value returns the current summary value. Implementations return
	// NaN before any value has been accumulated.
	Value() float64
	// N returns the number of values accumulated so far.
	N() int
}

// Feed drains the sequence into the given accumulators and returns the
// number of values consumed.
func Feed(src iter.Seq[float64], accs ...Accumulator) int {
	n := 0
	for v := range src {
		for _, acc := range accs {
			acc.Accumulate(v)
		}
		n++
	}
	return n
}

// Mean computes the arithmetic mean over all values.
type Mean struct {
	sum float64
	n   int
}

// Accumulate implements [Accumulator].
func (m *Mean) Accumulate(v float64) {
	m.sum += v
	m.n++
}

// Value implements [Accumulator].
func (m *Mean) Value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

// N implements [Accumulator].
func (m *Mean) N() int { return m.n }

// Merge folds another Mean into the receiver, as though the receiver
// had accumulated both streams.
func (m *Mean) Merge(other *Mean) {
	m.sum += other.sum
	m.n += other.n
}

// RunningMean computes an exponential running mean. Unlike [Mean],
// recent values dominate: each accumulated value is weighted by
// alpha = 1/lifetime and the prior summary by 1-alpha.
//
// There is no Merge: the result depends on the order of the values.
type RunningMean struct {
	acc   float64
	alpha float64
	n     int
}

// NewRunningMean returns a RunningMean with the given lifetime, which
// must be at least 1.
func NewRunningMean(lifetime float64) *RunningMean {
	if lifetime < 1 {
		lifetime = 1
	}
	return &RunningMean{alpha: 1 / lifetime}
}

// Accumulate implements [Accumulator].
func (m *RunningMean) Accumulate(v float64) {
	m.acc = m.acc*(1-m.alpha) + v*m.alpha
	m.n++
}

// Value implements [Accumulator].
func (m *RunningMean) Value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.acc
}

// N implements [Accumulator].
func (m *RunningMean) N() int { return m.n }
