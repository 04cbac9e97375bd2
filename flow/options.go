package flow

import (
	"github.com/flowmaestro/flowmaestro-go/flow/emit"
	"github.com/flowmaestro/flowmaestro-go/flow/store"
)

// Options configures Engine execution behavior. Zero values are valid; the
// Engine applies sensible defaults.
type Options struct {
	// MaxSteps bounds the number of scheduling rounds, as a guard against
	// scheduler bugs producing unbounded loops. If 0, DefaultMaxSteps is
	// used; negative disables the bound.
	MaxSteps int

	// MaxConcurrentNodes bounds concurrent handler executions when the
	// graph itself does not declare a bound. If 0, DefaultMaxConcurrent is
	// used.
	MaxConcurrentNodes int
}

// Defaults applied by NewEngine when the corresponding option is zero.
const (
	DefaultMaxSteps      = 1000
	DefaultMaxConcurrent = 8
)

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine := flow.NewEngine(registry,
//	    flow.WithMaxConcurrent(16),
//	    flow.WithEmitter(emit.NewLogEmitter(os.Stdout, true)),
//	    flow.WithStore(runStore),
//	)
type Option func(*Engine)

// WithMaxSteps bounds the number of scheduling rounds per execution.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.opts.MaxSteps = n }
}

// WithMaxConcurrent bounds concurrent handler executions. A per-graph bound
// (Builder.MaxConcurrent) takes precedence over this engine-wide default.
//
// Handlers are I/O-bound; values of 8-50 are typical depending on external
// service limits.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) { e.opts.MaxConcurrentNodes = n }
}

// WithEmitter sets the observability event receiver. Defaults to a
// NullEmitter.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithStore sets the RunStore that persists each applied step for the
// durable-execution substrate. Without a store, execution state lives only
// in memory for the duration of Run.
func WithStore(s store.RunStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithMetrics attaches Prometheus metrics collection.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTemplater replaces the default {{Path.To.Value}} resolver.
func WithTemplater(t Templater) Option {
	return func(e *Engine) {
		if t != nil {
			e.templater = t
		}
	}
}
