// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"

	"vawter.tech/pipeline/internal/safe"
)

// ErrSkip is the "no value" sentinel. An element function returns
// ErrSkip (or an error wrapping it) to indicate that its input produced
// no output. Skipped elements are dropped from the output sequence
// unless the stage was built with [WithSkipNone] set to false, in which
// case the zero value of the result type is emitted in their place.
var ErrSkip = errors.New("skip element")

// ErrParallelExpand is surfaced when an expanding stage is piped with
// one or more workers. Sub-sequence results cannot cross the worker
// boundary, so flattening is defined only for serial execution.
var ErrParallelExpand = errors.New("expanding stages require WithWorkers(0)")

// A RecoveredError will be surfaced when an element function panics.
type RecoveredError = safe.RecoveredError
