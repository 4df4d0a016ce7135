// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// config captures the immutable per-stage settings. It is populated by
// [Option] callbacks during stage construction and never mutated
// afterwards.
type config struct {
	extraCache int
	limiter    *rate.Limiter
	logger     zerolog.Logger
	params     Params
	skipNone   bool
	workers    int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:   zerolog.Nop(),
		skipNone: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 0 {
		cfg.workers = 0
	}
	if cfg.extraCache < 0 {
		cfg.extraCache = 0
	}
	return cfg
}

// budget returns the maximum number of elements that may be dispatched
// but not yet emitted. This single formula bounds both the reorder
// buffer and resident memory.
func (c *config) budget() int {
	return c.workers + c.extraCache
}

// An Option configures a stage during construction.
type Option func(*config)

// WithWorkers sets the number of concurrent workers applied to a piped
// source. Zero, the default, selects serial in-caller execution.
// Direct calls are never affected.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithExtraCache allows n additional elements to be in flight beyond
// the worker count, trading memory for tolerance of uneven per-element
// latency. The default is zero.
func WithExtraCache(n int) Option {
	return func(c *config) { c.extraCache = n }
}

// WithSkipNone controls the treatment of elements whose function
// returns [ErrSkip]. When true (the default), such elements are
// dropped from the output. When false, the zero value of the result
// type is emitted in their place.
func WithSkipNone(skip bool) Option {
	return func(c *config) { c.skipNone = skip }
}

// WithParams fixes named arguments that will be visible, via
// [ParamsFrom], to every invocation of the element function.
// Per-invocation [PipeParams] override these values key by key.
func WithParams(p Params) Option {
	return func(c *config) { c.params = c.params.merge(p) }
}

// WithLogger attaches a logger used to trace execution mode, worker
// counts, and throughput at debug level. The default discards all
// events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxRate paces upstream consumption with a [rate.Limiter]
// admitting r elements per second in bursts of at most b. Both serial
// and parallel execution wait for the limiter before pulling each
// upstream element.
func WithMaxRate(r float64, b int) Option {
	return func(c *config) { c.limiter = rate.NewLimiter(rate.Limit(r), b) }
}

// pipeConfig carries per-invocation settings.
type pipeConfig struct {
	params Params
}

// A PipeOption adjusts a single call or pipe invocation.
type PipeOption func(*pipeConfig)

// PipeParams supplies named arguments for one invocation, overriding
// any stage-level [WithParams] values with the same keys.
func PipeParams(p Params) PipeOption {
	return func(pc *pipeConfig) { pc.params = pc.params.merge(p) }
}

// invocationParams merges stage and invocation parameters.
func (c *config) invocationParams(opts []PipeOption) Params {
	var pc pipeConfig
	for _, opt := range opts {
		opt(&pc)
	}
	return c.params.merge(pc.params)
}
