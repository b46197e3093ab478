// Package instrument provides silo.Instrument implementations for metrics,
// tracing and logging.
//
// Instruments only observe dispatches; they never change state or stop an
// action. Attach them when creating a silo:
//
//	metrics := instrument.Prometheus(instrument.WithNamespace("game"))
//	tracer := instrument.OpenTelemetry(instrument.WithTracerName("game"))
//	logs := instrument.Logger(slog.Default())
//
//	stats := silo.New(Stats{},
//	    silo.WithName("stats"),
//	    silo.WithInstrument(instrument.Multi(metrics, tracer, logs)),
//	)
package instrument
