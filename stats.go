// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Stats reports the throughput of a single pipe invocation. Processed
// counts elements pulled from the upstream source; Yielded counts
// elements emitted downstream. The counts diverge when elements are
// skipped or when an expanding stage fans an input out into multiple
// outputs.
type Stats struct {
	Processed uint64
	Yielded   uint64
}

// YieldPercent returns 100 * Yielded / Processed, or zero before any
// element has been processed.
func (s Stats) YieldPercent() float64 {
	if s.Processed == 0 {
		return 0
	}
	return 100 * float64(s.Yielded) / float64(s.Processed)
}

// String is for debugging use only.
func (s Stats) String() string {
	return fmt.Sprintf("%d processed, %d yielded (%.1f%%)",
		s.Processed, s.Yielded, s.YieldPercent())
}

// counters is the live, atomically-updated form of [Stats] owned by a
// running invocation. The dispatcher and the consumer update it from
// different goroutines.
type counters struct {
	processed atomic.Uint64
	yielded   atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Processed: c.processed.Load(),
		Yielded:   c.yielded.Load(),
	}
}
