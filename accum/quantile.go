// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package accum

import (
	"fmt"
	"math"
	"slices"
)

// Quantile estimates the p-quantile of a stream in constant memory
// using the P² algorithm of Jain and Chlamtac
// (https://doi.org/10.1145/4372.4378). Five markers track the minimum,
// the maximum, the target quantile, and the midpoints between them;
// marker heights are adjusted with a piecewise-parabolic fit as values
// arrive.
//
// The estimate is approximate once more than five values have been
// seen. For five or fewer, the exact sample quantile is returned.
type Quantile struct {
	p float64
	n int

	// Marker state, valid once n >= 5. Positions are 0-based.
	pos     [5]int
	desired [5]float64
	incr    [5]float64
	heights [5]float64

	// Holds the first observations until the markers initialize.
	initial []float64
}

// NewQuantile returns an estimator for the p-quantile. It panics
// unless 0 < p < 1.
func NewQuantile(p float64) *Quantile {
	if p <= 0 || p >= 1 {
		panic(fmt.Errorf("p must be in (0, 1): %f", p))
	}
	return &Quantile{
		p:       p,
		incr:    [5]float64{0, p / 2, p, (1 + p) / 2, 1},
		initial: make([]float64, 0, 5),
	}
}

// NewMedian returns an estimator for the 0.5-quantile.
func NewMedian() *Quantile {
	return NewQuantile(0.5)
}

// Accumulate implements [Accumulator].
func (q *Quantile) Accumulate(v float64) {
	q.n++
	if q.n <= 5 {
		q.initial = append(q.initial, v)
		if q.n == 5 {
			slices.Sort(q.initial)
			copy(q.heights[:], q.initial)
			q.pos = [5]int{0, 1, 2, 3, 4}
			p := q.p
			q.desired = [5]float64{0, 2 * p, 4 * p, 2 + 2*p, 4}
		}
		return
	}

	// Locate the cell containing v, updating the extremes in place.
	var k int
	switch {
	case v < q.heights[0]:
		q.heights[0] = v
		k = 0
	case v >= q.heights[4]:
		q.heights[4] = v
		k = 3
	default:
		k = 0
		for i := 1; i < 4; i++ {
			if v >= q.heights[i] {
				k = i
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		q.pos[i]++
	}
	for i := range q.desired {
		q.desired[i] += q.incr[i]
	}

	// Nudge the interior markers toward their desired positions.
	for i := 1; i <= 3; i++ {
		d := q.desired[i] - float64(q.pos[i])
		if (d >= 1 && q.pos[i+1]-q.pos[i] > 1) || (d <= -1 && q.pos[i-1]-q.pos[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			h := q.parabolic(i, sign)
			if q.heights[i-1] < h && h < q.heights[i+1] {
				q.heights[i] = h
			} else {
				q.heights[i] = q.linear(i, sign)
			}
			q.pos[i] += sign
		}
	}
}

// parabolic computes the new height for marker i via the piecewise
// parabolic (P²) formula.
func (q *Quantile) parabolic(i, d int) float64 {
	q1, q2, q3 := q.heights[i-1], q.heights[i], q.heights[i+1]
	n1, n2, n3 := float64(q.pos[i-1]), float64(q.pos[i]), float64(q.pos[i+1])
	df := float64(d)
	return q2 + df/(n3-n1)*((n2-n1+df)*(q3-q2)/(n3-n2)+(n3-n2-df)*(q2-q1)/(n2-n1))
}

// linear is the fallback height adjustment when the parabolic fit
// would leave the heights unordered.
func (q *Quantile) linear(i, d int) float64 {
	return q.heights[i] + float64(d)*(q.heights[i+d]-q.heights[i])/float64(q.pos[i+d]-q.pos[i])
}

// Value implements [Accumulator].
func (q *Quantile) Value() float64 {
	switch {
	case q.n == 0:
		return math.NaN()
	case q.n < 5:
		sorted := slices.Clone(q.initial)
		slices.Sort(sorted)
		idx := int(math.Round(q.p * float64(q.n-1)))
		return sorted[idx]
	default:
		return q.heights[2]
	}
}

// N implements [Accumulator].
func (q *Quantile) N() int { return q.n }

// markers exposes the internal marker state for tests.
func (q *Quantile) markers() (pos [5]int, heights [5]float64) {
	return q.pos, q.heights
}
