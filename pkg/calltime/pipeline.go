package calltime

import (
	"errors"
	"io"
	"log/slog"

	"github.com/harunnryd/calltime/pkg/intercept"
	"github.com/harunnryd/calltime/pkg/logging"
	"github.com/harunnryd/calltime/pkg/metrics"
	"github.com/harunnryd/calltime/pkg/observers"
	"github.com/harunnryd/calltime/pkg/redact"
)

// Pipeline is the sink built from Config: the configured sinks fanned out,
// optionally behind an async queue and a sampler.
type Pipeline struct {
	head    metrics.Sink
	fanout  *observers.MultiSink
	async   *metrics.AsyncSink
	stats   *observers.StatsSink
	closers []io.Closer
	log     *slog.Logger
}

var _ metrics.Sink = (*Pipeline)(nil)

// BuildPipeline validates cfg and builds every configured sink. A nil registry
// means DefaultSinkRegistry.
func BuildPipeline(cfg Config, registry *SinkRegistry, log *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = DefaultSinkRegistry()
	}
	log = logging.NewComponentLogger(log, "calltime")
	redact.SetEnabled(cfg.Privacy.RedactErrors)

	p := &Pipeline{log: log}
	deps := SinkDeps{Config: cfg, Logger: log}
	sinks := make([]metrics.Sink, 0, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		sink, err := registry.Build(sc.Kind, sc.Settings, deps)
		if err != nil {
			_ = p.closeAll()
			return nil, err
		}
		if st, ok := sink.(*observers.StatsSink); ok && p.stats == nil {
			p.stats = st
		}
		if c, ok := sink.(io.Closer); ok {
			p.closers = append(p.closers, c)
		}
		sinks = append(sinks, sink)
	}
	p.fanout = observers.NewMultiSink(sinks...)
	p.head = p.fanout

	if cfg.Async.Enabled {
		p.async = metrics.NewAsyncSink(p.head, cfg.Async.Buffer)
		p.head = p.async
	}
	if cfg.Sampling.Enabled && cfg.Sampling.Rate < 1 {
		p.head = metrics.NewSamplingSink(p.head, cfg.Sampling.Rate)
	}

	log.Debug("sink pipeline ready",
		"sinks", p.fanout.Len(),
		"async", cfg.Async.Enabled,
		"sampling", cfg.Sampling.Enabled,
		"sampling_rate", cfg.Sampling.Rate,
	)
	return p, nil
}

func (p *Pipeline) Record(obs metrics.Observation) {
	p.head.Record(obs)
}

// Stats returns the first configured stats sink, or nil.
func (p *Pipeline) Stats() *observers.StatsSink {
	return p.stats
}

// Interceptor returns an interceptor reporting to this pipeline.
func (p *Pipeline) Interceptor(opts ...intercept.Option) *intercept.Interceptor {
	base := []intercept.Option{intercept.WithSink(p), intercept.WithLogger(p.log)}
	return intercept.New(append(base, opts...)...)
}

// Flush delivers queued observations and syncs file backed sinks.
func (p *Pipeline) Flush() error {
	if p.async != nil {
		return p.async.Flush()
	}
	return p.fanout.Flush()
}

// Drain flushes the pipeline; it lets the pipeline act as a runner drainer.
func (p *Pipeline) Drain() error {
	return p.Flush()
}

// Close drains the async queue and closes sinks that own resources.
func (p *Pipeline) Close() error {
	var err error
	if p.async != nil {
		err = p.async.Close()
		if dropped := p.async.Dropped(); dropped > 0 {
			p.log.Warn("observations dropped, async buffer full", "dropped", dropped)
		}
	} else {
		err = p.fanout.Flush()
	}
	if p.stats != nil {
		p.stats.Log(p.log)
	}
	return errors.Join(err, p.closeAll())
}

func (p *Pipeline) closeAll() error {
	var err error
	for _, c := range p.closers {
		err = errors.Join(err, c.Close())
	}
	p.closers = nil
	return err
}
