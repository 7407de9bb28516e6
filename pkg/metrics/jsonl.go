package metrics

import (
	"context"
	"io"
	"log/slog"

	"github.com/harunnryd/calltime/pkg/redact"
)

type JSONLSink struct {
	logger *slog.Logger
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	if w == nil {
		return &JSONLSink{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	}
	return &JSONLSink{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

func (s *JSONLSink) Record(obs Observation) {
	attrs := []slog.Attr{
		slog.String("id", obs.ID),
		slog.String("method", obs.Method),
		slog.Time("start", obs.Start),
		slog.Int64("duration_ms", obs.DurationMs()),
		slog.String("outcome", string(obs.Outcome)),
	}
	if obs.Target != "" {
		attrs = append(attrs, slog.String("target", obs.Target))
	}
	if obs.Err != nil {
		attrs = append(attrs, slog.String("error", redact.Text(obs.Err.Error())))
	}
	s.logger.LogAttrs(context.TODO(), slog.LevelInfo, "call", attrs...)
}
