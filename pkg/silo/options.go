package silo

import (
	"fmt"
	"log/slog"
)

// Option configures a Silo or a Combined.
type Option func(*options)

type options struct {
	name       string
	logger     *slog.Logger
	instrument Instrument

	// same and clone hold typed functions checked against the state type in New.
	same  any
	clone any
}

// WithName sets the name used in errors, logs and instrumentation.
// By default silos are named "silo-<id>".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. If unset, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInstrument attaches an instrument that observes every dispatch.
// Ignored by Combine.
func WithInstrument(in Instrument) Option {
	return func(o *options) {
		o.instrument = in
	}
}

// WithSame replaces Same as the test deciding whether a modifier result is a
// no-op. Ignored by Combine.
//
// Example, for content equality:
//
//	silo.New(Board{}, silo.WithSame(func(a, b Board) bool {
//	    return reflect.DeepEqual(a, b)
//	}))
func WithSame[S any](fn func(a, b S) bool) Option {
	return func(o *options) {
		o.same = fn
	}
}

// WithClone sets the function used to copy the initial state, so that the
// snapshot returned by InitialState is isolated from the live state. Only
// needed when S holds references. Ignored by Combine.
func WithClone[S any](fn func(S) S) Option {
	return func(o *options) {
		o.clone = fn
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// typed extracts a typed option function; a mismatch against the state type is
// a programming error.
func typed[F any](v any, option string) F {
	var zero F
	if v == nil {
		return zero
	}
	fn, ok := v.(F)
	if !ok {
		panic(fmt.Sprintf("silo: %s function is %T, want %T", option, v, zero))
	}
	return fn
}
