package observers

import (
	"context"
	"log/slog"

	"github.com/harunnryd/calltime/pkg/metrics"
	"github.com/harunnryd/calltime/pkg/redact"
)

// LoggerSink logs successful calls at debug and failed ones at warn.
type LoggerSink struct {
	log *slog.Logger
}

func NewLoggerSink(log *slog.Logger) *LoggerSink {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerSink{log: log}
}

func (s *LoggerSink) Record(obs metrics.Observation) {
	attrs := []slog.Attr{
		slog.String("method", obs.Method),
		slog.Int64("duration_ms", obs.DurationMs()),
		slog.String("outcome", string(obs.Outcome)),
		slog.String("call_id", obs.ID),
	}
	if obs.Target != "" {
		attrs = append(attrs, slog.String("target", obs.Target))
	}
	level := slog.LevelDebug
	if obs.Failed() {
		level = slog.LevelWarn
		if obs.Err != nil {
			attrs = append(attrs, slog.String("error", redact.Text(obs.Err.Error())))
		}
	}
	s.log.LogAttrs(context.TODO(), level, "call", attrs...)
}

// MultiSink fans each observation out to every non-nil sink in order.
type MultiSink struct {
	list []metrics.Sink
}

func NewMultiSink(list ...metrics.Sink) *MultiSink {
	filtered := make([]metrics.Sink, 0, len(list))
	for _, s := range list {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{list: filtered}
}

func (m *MultiSink) Record(obs metrics.Observation) {
	for _, s := range m.list {
		s.Record(obs)
	}
}

// Flush flushes every member that supports it and returns the first error.
func (m *MultiSink) Flush() error {
	var first error
	for _, s := range m.list {
		if f, ok := s.(metrics.Flusher); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func (m *MultiSink) Len() int { return len(m.list) }
