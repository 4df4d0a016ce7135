// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package accum

import "math"

// Variance computes the population variance over all values as
// E[X²] - E[X]².
type Variance struct {
	mean   Mean
	meanSq Mean
}

// Accumulate implements [Accumulator].
func (a *Variance) Accumulate(v float64) {
	a.mean.Accumulate(v)
	a.meanSq.Accumulate(v * v)
}

// Value implements [Accumulator].
func (a *Variance) Value() float64 {
	return a.meanSq.Value() - a.mean.Value()*a.mean.Value()
}

// N implements [Accumulator].
func (a *Variance) N() int { return a.mean.N() }

// Std returns the population standard deviation.
func (a *Variance) Std() float64 {
	return math.Sqrt(a.Value())
}

// Mean returns the mean of the accumulated values.
func (a *Variance) Mean() float64 { return a.mean.Value() }

// Merge folds another Variance into the receiver.
func (a *Variance) Merge(other *Variance) {
	a.mean.Merge(&other.mean)
	a.meanSq.Merge(&other.meanSq)
}

// RunningVariance computes an exponential running variance using
// [RunningMean] estimates of X and X². See RunningMean for the
// weighting scheme; there is no Merge.
type RunningVariance struct {
	mean   *RunningMean
	meanSq *RunningMean
}

// NewRunningVariance returns a RunningVariance with the given
// lifetime, which must be at least 1.
func NewRunningVariance(lifetime float64) *RunningVariance {
	return &RunningVariance{
		mean:   NewRunningMean(lifetime),
		meanSq: NewRunningMean(lifetime),
	}
}

// Accumulate implements [Accumulator].
func (a *RunningVariance) Accumulate(v float64) {
	a.mean.Accumulate(v)
	a.meanSq.Accumulate(v * v)
}

// Value implements [Accumulator].
func (a *RunningVariance) Value() float64 {
	return a.meanSq.Value() - a.mean.Value()*a.mean.Value()
}

// N implements [Accumulator].
func (a *RunningVariance) N() int { return a.mean.N() }

// Std returns the running standard deviation.
func (a *RunningVariance) Std() float64 {
	return math.Sqrt(a.Value())
}
