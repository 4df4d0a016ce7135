// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package stream provides small helpers for manipulating lazy
// sequences between pipeline stages.
package stream

import (
	"context"
	"iter"

	"golang.org/x/time/rate"
)

// Filter returns a sequence containing only the elements for which
// keep returns true.
func Filter[T any](src iter.Seq[T], keep func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range src {
			if !keep(v) {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// NonZero removes elements equal to the zero value of T. It is the
// counterpart of a stage built with WithSkipNone(false): the zero
// placeholders it emits can be stripped again downstream.
func NonZero[T comparable](src iter.Seq[T]) iter.Seq[T] {
	var zero T
	return Filter(src, func(v T) bool { return v != zero })
}

// Take returns a sequence of at most the first n elements. The source
// is not pulled past the nth element.
func Take[T any](src iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		taken := 0
		for v := range src {
			if !yield(v) {
				return
			}
			taken++
			if taken == n {
				return
			}
		}
	}
}

// Throttle paces a sequence to at most r elements per second, in
// bursts of at most b. The sequence ends early if the context is
// canceled while waiting.
func Throttle[T any](ctx context.Context, src iter.Seq[T], r float64, b int) iter.Seq[T] {
	limiter := rate.NewLimiter(rate.Limit(r), b)
	return func(yield func(T) bool) {
		for v := range src {
			if limiter.Wait(ctx) != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
