package calltime

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/calltime/pkg/configutil"
	"github.com/harunnryd/calltime/pkg/errorsx"
	"github.com/harunnryd/calltime/pkg/logging"
	"github.com/harunnryd/calltime/pkg/metrics"
	"github.com/harunnryd/calltime/pkg/observers"
)

// SinkDeps is what a sink factory may draw on besides its own settings.
type SinkDeps struct {
	Config Config
	Logger *slog.Logger
}

type SinkFactory func(settings map[string]any, deps SinkDeps) (metrics.Sink, error)

type SinkRegistry struct {
	mu        sync.RWMutex
	factories map[string]SinkFactory
}

func NewSinkRegistry() *SinkRegistry {
	return &SinkRegistry{factories: make(map[string]SinkFactory)}
}

// DefaultSinkRegistry knows stdout, jsonl, log, stats, timeline and noop.
func DefaultSinkRegistry() *SinkRegistry {
	r := NewSinkRegistry()
	r.Register("stdout", buildStdoutSink)
	r.Register("jsonl", buildJSONLSink)
	r.Register("log", buildLogSink)
	r.Register("stats", buildStatsSink)
	r.Register("timeline", buildTimelineSink)
	r.Register("noop", func(map[string]any, SinkDeps) (metrics.Sink, error) {
		return metrics.NoopSink{}, nil
	})
	return r
}

func (r *SinkRegistry) Register(kind string, factory SinkFactory) {
	r.mu.Lock()
	r.factories[normalizeKind(kind)] = factory
	r.mu.Unlock()
}

func (r *SinkRegistry) Kinds() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *SinkRegistry) Build(kind string, settings map[string]any, deps SinkDeps) (metrics.Sink, error) {
	r.mu.RLock()
	fn := r.factories[normalizeKind(kind)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, errorsx.Newf(errorsx.ReasonSinkUnknown, "sink kind not registered: %s", kind)
	}
	sink, err := fn(settings, deps)
	if err != nil {
		return nil, errorsx.Wrapf(err, errorsx.ReasonSinkSettings, "sink %s", kind)
	}
	return sink, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

type stdoutSettings struct {
	Stream string `mapstructure:"stream"`
}

func buildStdoutSink(settings map[string]any, _ SinkDeps) (metrics.Sink, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{Optional: []string{"stream"}}); err != nil {
		return nil, err
	}
	var s stdoutSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, err
	}
	switch strings.ToLower(configutil.StringValue(s.Stream, "stdout")) {
	case "stdout":
		return metrics.NewLineSink(os.Stdout), nil
	case "stderr":
		return metrics.NewLineSink(os.Stderr), nil
	default:
		return nil, errorsx.Newf(errorsx.ReasonSinkSettings, "stream %q is not stdout or stderr", s.Stream)
	}
}

type jsonlSettings struct {
	Path   string `mapstructure:"path"`
	Append *bool  `mapstructure:"append"`
}

// fileSink owns the file its inner sink writes to.
type fileSink struct {
	metrics.Sink
	f *os.File
}

func (s *fileSink) Flush() error { return s.f.Sync() }

func (s *fileSink) Close() error { return s.f.Close() }

func buildJSONLSink(settings map[string]any, _ SinkDeps) (metrics.Sink, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{Optional: []string{"path", "append"}}); err != nil {
		return nil, err
	}
	var s jsonlSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Path) == "" {
		return metrics.NewJSONLSink(os.Stdout), nil
	}
	flags := os.O_CREATE | os.O_WRONLY
	if configutil.BoolValue(s.Append, true) {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.Path, flags, 0o644)
	if err != nil {
		return nil, errorsx.Wrapf(err, errorsx.ReasonSinkOpen, "open %s", s.Path)
	}
	return &fileSink{Sink: metrics.NewJSONLSink(f), f: f}, nil
}

func buildLogSink(settings map[string]any, deps SinkDeps) (metrics.Sink, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return observers.NewLoggerSink(logging.NewComponentLogger(deps.Logger, "calls")), nil
}

func buildStatsSink(settings map[string]any, _ SinkDeps) (metrics.Sink, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return observers.NewStatsSink(), nil
}

type timelineSettings struct {
	Dir           string `mapstructure:"dir"`
	RetentionDays *int   `mapstructure:"retention_days"`
}

func buildTimelineSink(settings map[string]any, deps SinkDeps) (metrics.Sink, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{Optional: []string{"dir", "retention_days"}}); err != nil {
		return nil, err
	}
	s := timelineSettings{Dir: deps.Config.Timeline.Dir}
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Dir) == "" {
		return nil, errorsx.Newf(errorsx.ReasonSinkSettings, "timeline sink needs settings.dir or timeline.dir")
	}
	days := configutil.IntValue(s.RetentionDays, deps.Config.Timeline.RetentionDays)
	if days < 0 {
		return nil, errorsx.Newf(errorsx.ReasonSinkSettings, "retention_days must not be negative")
	}
	if days > 0 {
		purgeTimeline(s.Dir, time.Duration(days)*24*time.Hour, deps.Logger)
	}
	return observers.NewTimelineSink(s.Dir), nil
}

func purgeTimeline(dir string, maxAge time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	removed, err := observers.PurgeArtifacts(dir, maxAge)
	if err != nil {
		log.Warn("timeline purge failed", "dir", dir, "error", err)
	} else if removed > 0 {
		log.Info("timeline purged", "dir", dir, "removed", removed)
	}
}

var _ io.Closer = (*fileSink)(nil)
