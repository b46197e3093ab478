package instrument

import (
	"context"
	"log/slog"

	"github.com/vango-dev/silo/pkg/silo"
)

// LogOption configures the logging instrument.
type LogOption func(*logInstrument)

// WithLevel sets the level for completed dispatches (default: Debug).
// Panics are always logged at Error.
func WithLevel(level slog.Level) LogOption {
	return func(l *logInstrument) {
		l.level = level
	}
}

// WithNoops controls whether dispatches that commit nothing are logged
// (default: true).
func WithNoops(enabled bool) LogOption {
	return func(l *logInstrument) {
		l.noops = enabled
	}
}

type logInstrument struct {
	logger *slog.Logger
	level  slog.Level
	noops  bool
}

// Logger creates an instrument that writes one record per dispatch to logger.
// A nil logger uses slog.Default().
func Logger(logger *slog.Logger, opts ...LogOption) silo.Instrument {
	if logger == nil {
		logger = slog.Default()
	}
	l := &logInstrument{
		logger: logger,
		level:  slog.LevelDebug,
		noops:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *logInstrument) StartDispatch(info silo.DispatchInfo) func(silo.DispatchResult) {
	return func(res silo.DispatchResult) {
		if res.Panic != nil {
			attrs := []any{
				"silo", info.Silo,
				"action", info.Action,
				"duration", res.Duration,
				"panic", res.Panic,
			}
			if v, ok := silo.AsViolation(res.Panic); ok && v.Silo == info.Silo {
				attrs = append(attrs, "code", v.Code)
			}
			l.logger.Error("silo dispatch panicked", attrs...)
			return
		}

		if !res.Changed && !l.noops {
			return
		}
		l.logger.Log(context.Background(), l.level, "silo dispatch",
			"silo", info.Silo,
			"action", info.Action,
			"changed", res.Changed,
			"subscribers", res.Subscribers,
			"duration", res.Duration,
		)
	}
}
