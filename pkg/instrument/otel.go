package instrument

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/silo/pkg/silo"
)

const defaultTracerName = "github.com/vango-dev/silo"

// OTelConfig configures the OpenTelemetry instrument.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "github.com/vango-dev/silo").
	TracerName string

	// TracerProvider provides the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// BaseContext is the parent of top-level dispatch spans.
	// Default: context.Background()
	BaseContext context.Context

	// Filter decides which dispatches are traced.
	// Return true to trace, false to skip. Default: trace all.
	Filter func(info silo.DispatchInfo) bool

	// AttributeExtractor adds custom attributes to spans.
	AttributeExtractor func(info silo.DispatchInfo) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry instrument.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithBaseContext sets the parent context for top-level dispatch spans.
func WithBaseContext(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.BaseContext = ctx
	}
}

// WithDispatchFilter sets a filter for which dispatches to trace.
func WithDispatchFilter(filter func(info silo.DispatchInfo) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a function to extract custom attributes.
func WithAttributeExtractor(fn func(info silo.DispatchInfo) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = fn
	}
}

// Tracer is a silo.Instrument that records one span per dispatch. A dispatch
// started by a subscriber while another dispatch is notifying becomes a child
// span of the outer one, so a trace shows the full depth-first cascade.
//
// A Tracer keeps a stack of open spans and, like the silos it observes, must
// only be used from one goroutine at a time.
type Tracer struct {
	config OTelConfig

	mu    sync.Mutex
	stack []context.Context
}

var _ silo.Instrument = (*Tracer)(nil)

// OpenTelemetry creates an instrument that traces dispatches.
//
// Example:
//
//	tracer := instrument.OpenTelemetry(
//	    instrument.WithTracerName("game"),
//	    instrument.WithDispatchFilter(func(info silo.DispatchInfo) bool {
//	        return info.Action != "tick"
//	    }),
//	)
//	stats := silo.New(Stats{}, silo.WithInstrument(tracer))
func OpenTelemetry(opts ...OTelOption) *Tracer {
	config := OTelConfig{
		TracerName:  defaultTracerName,
		BaseContext: context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.BaseContext == nil {
		config.BaseContext = context.Background()
	}
	config.tracer = config.TracerProvider.Tracer(config.TracerName)

	return &Tracer{config: config}
}

// StartDispatch implements silo.Instrument.
func (t *Tracer) StartDispatch(info silo.DispatchInfo) func(silo.DispatchResult) {
	if t.config.Filter != nil && !t.config.Filter(info) {
		return nil
	}

	attrs := []attribute.KeyValue{
		attribute.String("silo.name", info.Silo),
		attribute.String("silo.action", info.Action),
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(info)...)
	}

	ctx, span := t.config.tracer.Start(t.Context(), info.Silo+"."+info.Action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	t.push(ctx)

	return func(res silo.DispatchResult) {
		t.pop(ctx)

		span.SetAttributes(
			attribute.Bool("silo.changed", res.Changed),
			attribute.Int("silo.subscribers", res.Subscribers),
		)

		if res.Panic != nil {
			err := panicError(res.Panic)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if v, ok := silo.AsViolation(res.Panic); ok && v.Silo == info.Silo {
				span.SetAttributes(attribute.String("silo.violation", v.Code))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End()
	}
}

// Context returns the context of the innermost open dispatch span, or the
// base context when no dispatch is running. Subscribers use it to parent
// their own spans under the dispatch that notified them.
func (t *Tracer) Context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.stack); n > 0 {
		return t.stack[n-1]
	}
	return t.config.BaseContext
}

func (t *Tracer) push(ctx context.Context) {
	t.mu.Lock()
	t.stack = append(t.stack, ctx)
	t.mu.Unlock()
}

// pop removes ctx, which is normally the top of the stack.
func (t *Tracer) pop(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i] == ctx {
			t.stack = append(t.stack[:i], t.stack[i+1:]...)
			return
		}
	}
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
