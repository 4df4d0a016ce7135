// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"maps"
)

// paramsKey is a [context.Context.Value] key for a [Params].
type paramsKey struct{}

// Params carries named arguments to an element function. Parameters
// may be fixed when a stage is built ([WithParams]) or supplied per
// pipe invocation ([PipeParams]); invocation values override stage
// values with the same key.
//
// The merged Params are delivered through the task context and can be
// retrieved inside the element function via [ParamsFrom]. Values
// should be treated as immutable: when workers run remotely, the map
// is what crosses the process boundary.
type Params map[string]any

// ParamsFrom returns the Params for the given task context, or false
// if the context does not carry any.
func ParamsFrom(ctx context.Context) (Params, bool) {
	found, ok := ctx.Value(paramsKey{}).(Params)
	return found, ok
}

// merge overlays call-time parameters onto stage parameters, the call
// side winning per key. It returns nil when both sides are empty.
func (p Params) merge(call Params) Params {
	if len(call) == 0 {
		return p
	}
	if len(p) == 0 {
		return call
	}
	merged := make(Params, len(p)+len(call))
	maps.Copy(merged, p)
	maps.Copy(merged, call)
	return merged
}

// bind attaches the Params to a context for delivery to element
// functions. A nil or empty receiver returns the context unchanged.
func (p Params) bind(ctx context.Context) context.Context {
	if len(p) == 0 {
		return ctx
	}
	return context.WithValue(ctx, paramsKey{}, p)
}
