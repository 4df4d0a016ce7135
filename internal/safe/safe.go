// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package safe executes user-provided element functions, converting
// panics into errors.
package safe

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const captureDepth = 32

// A RecoveredError associates a recovered panic value with the
// goroutine stack at the point of the panic.
type RecoveredError struct {
	Err   error
	Stack []uintptr
}

// Error implements error.
func (e *RecoveredError) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "recovered: %v\n", e.Err)
	frames := runtime.CallersFrames(e.Stack)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&sb, "%s ( %s:%d )\n", frame.Function, frame.File, frame.Line)

		if !more {
			return sb.String()
		}
	}
}

// String is for debugging use only.
func (e *RecoveredError) String() string {
	return e.Error()
}

// Unwrap returns the enclosed error.
func (e *RecoveredError) Unwrap() error { return e.Err }

// capture converts a recovered value into a RecoveredError. The skip
// argument is passed through to [runtime.Callers].
func capture(r any, skip int) error {
	var err error
	switch t := r.(type) {
	case error:
		err = t
	default:
		err = fmt.Errorf("panic: %v", t)
	}
	stack := make([]uintptr, captureDepth)
	stack = stack[:runtime.Callers(skip, stack)]
	return &RecoveredError{
		Err:   err,
		Stack: stack,
	}
}

// Run executes the function. If the function panics, the recovered
// value will be joined into the returned error.
func Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, capture(r, 3))
		}
	}()
	err = fn()
	return
}

// Apply executes an element function, returning its result value. If
// the function panics, the recovered value will be joined into the
// returned error.
func Apply[R any](fn func() (R, error)) (ret R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, capture(r, 3))
		}
	}()
	ret, err = fn()
	return
}
