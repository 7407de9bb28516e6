package calltime

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/calltime/pkg/errorsx"
	"github.com/harunnryd/calltime/pkg/intercept"
	"github.com/harunnryd/calltime/pkg/metrics"
)

func memoryRegistry(mem *metrics.MemorySink) *SinkRegistry {
	r := DefaultSinkRegistry()
	r.Register("memory", func(map[string]any, SinkDeps) (metrics.Sink, error) { return mem, nil })
	return r
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestPipelineDeliversToAllSinks(t *testing.T) {
	mem := metrics.NewMemorySink()
	cfg := DefaultConfig()
	cfg.Sinks = []SinkConfig{{Kind: "memory"}, {Kind: "stats"}}

	p, err := BuildPipeline(cfg, memoryRegistry(mem), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ic := p.Interceptor(intercept.WithTarget("orders"))
	boom := errors.New("boom")
	_ = ic.Observe("Exec", func() error { return nil })
	if err := ic.Observe("Exec", func() error { return boom }); err != boom {
		t.Fatalf("expected identical error, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if mem.Len() != 2 {
		t.Fatalf("expected 2 observations, got %d", mem.Len())
	}
	snap := p.Stats().Snapshot()
	if len(snap) != 1 || snap[0].Count != 2 || snap[0].Failures != 1 || snap[0].Target != "orders" {
		t.Fatalf("unexpected stats: %+v", snap)
	}
}

func TestPipelineAsyncFlush(t *testing.T) {
	mem := metrics.NewMemorySink()
	cfg := DefaultConfig()
	cfg.Sinks = []SinkConfig{{Kind: "memory"}}
	cfg.Async = AsyncConfig{Enabled: true, Buffer: 32}

	p, err := BuildPipeline(cfg, memoryRegistry(mem), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer p.Close()
	ic := p.Interceptor()
	for i := 0; i < 10; i++ {
		_ = ic.Observe("Ping", func() error { return nil })
	}
	if err := p.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if mem.Len() != 10 {
		t.Fatalf("expected 10 after drain, got %d", mem.Len())
	}
}

func TestPipelineSamplingZeroDropsEverything(t *testing.T) {
	mem := metrics.NewMemorySink()
	cfg := DefaultConfig()
	cfg.Sinks = []SinkConfig{{Kind: "memory"}}
	cfg.Sampling = SamplingConfig{Enabled: true, Rate: 0}

	p, err := BuildPipeline(cfg, memoryRegistry(mem), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p.Record(metrics.Observation{Method: "Exec"})
	if mem.Len() != 0 {
		t.Fatalf("expected sampled out")
	}
}

func TestPipelineFromConfigLiteralKeepsEveryObservation(t *testing.T) {
	mem := metrics.NewMemorySink()
	cfg := Config{Sinks: []SinkConfig{{Kind: "memory"}}}

	p, err := BuildPipeline(cfg, memoryRegistry(mem), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer p.Close()
	ic := p.Interceptor()
	for i := 0; i < 5; i++ {
		_ = ic.Observe("Exec", func() error { return nil })
	}
	if mem.Len() != 5 {
		t.Fatalf("expected 5 observations for 5 calls, got %d", mem.Len())
	}
}

func TestPipelineCloseReportsDroppedObservations(t *testing.T) {
	block := make(chan struct{})
	reg := DefaultSinkRegistry()
	reg.Register("slow", func(map[string]any, SinkDeps) (metrics.Sink, error) {
		return metrics.SinkFunc(func(metrics.Observation) { <-block }), nil
	})
	cfg := Config{
		Sinks: []SinkConfig{{Kind: "slow"}},
		Async: AsyncConfig{Enabled: true, Buffer: 1},
	}
	var buf bytes.Buffer
	p, err := BuildPipeline(cfg, reg, slog.New(slog.NewTextHandler(&buf, nil)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for i := 0; i < 5; i++ {
		p.Record(metrics.Observation{Method: "Exec"})
	}
	close(block)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "observations dropped") || !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("expected dropped warning, got %q", buf.String())
	}
}

func TestPipelineJSONLAndTimelineFiles(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "calls.jsonl")
	cfg := DefaultConfig()
	cfg.Timeline.Dir = filepath.Join(dir, "timeline")
	cfg.Sinks = []SinkConfig{
		{Kind: "jsonl", Settings: map[string]any{"path": jsonlPath}},
		{Kind: "timeline"},
	}

	p, err := BuildPipeline(cfg, nil, quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p.Record(metrics.Observation{Target: "orders", Method: "Query", Duration: 5 * time.Millisecond, Outcome: metrics.OutcomeSuccess})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(jsonlPath)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() || !strings.Contains(sc.Text(), `"method":"Query"`) {
		t.Fatalf("expected Query line in jsonl")
	}
	if _, err := os.Stat(filepath.Join(cfg.Timeline.Dir, "orders.jsonl")); err != nil {
		t.Fatalf("expected timeline file: %v", err)
	}
}

func TestJSONLSinkAppendSetting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	reg := DefaultSinkRegistry()
	deps := SinkDeps{Config: DefaultConfig(), Logger: quietLogger()}

	for _, tt := range []struct {
		name    string
		append  any
		keepOld bool
	}{
		{name: "default appends", append: nil, keepOld: true},
		{name: "false truncates", append: false, keepOld: false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			settings := map[string]any{"path": path}
			if tt.append != nil {
				settings["append"] = tt.append
			}
			sink, err := reg.Build("jsonl", settings, deps)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			sink.Record(metrics.Observation{Method: "Exec"})
			_ = sink.(io.Closer).Close()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got := strings.HasPrefix(string(data), "old\n"); got != tt.keepOld {
				t.Fatalf("keepOld=%v, file %q", tt.keepOld, data)
			}
			if !strings.Contains(string(data), `"method":"Exec"`) {
				t.Fatalf("expected new line in %q", data)
			}
		})
	}
}

func TestTimelineSinkRetentionSetting(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "old.jsonl")
	fresh := filepath.Join(dir, "new.jsonl")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	past := time.Now().Add(-10 * 24 * time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deps := SinkDeps{Config: DefaultConfig(), Logger: quietLogger()}
	sink, err := DefaultSinkRegistry().Build("timeline", map[string]any{"dir": dir, "retention_days": 3}, deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer sink.(io.Closer).Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale timeline file to be purged, got %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh timeline file to stay: %v", err)
	}

	_, err = DefaultSinkRegistry().Build("timeline", map[string]any{"dir": dir, "retention_days": -1}, deps)
	if !errorsx.HasReason(err, errorsx.ReasonSinkSettings) {
		t.Fatalf("expected sink_settings for negative retention, got %v", err)
	}
}

func TestBuildPipelineErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sinks = []SinkConfig{{Kind: "carrier-pigeon"}}
	_, err := BuildPipeline(cfg, nil, quietLogger())
	if !errorsx.HasReason(err, errorsx.ReasonSinkUnknown) {
		t.Fatalf("expected sink_unknown, got %v", err)
	}

	cfg.Sinks = []SinkConfig{{Kind: "timeline"}}
	_, err = BuildPipeline(cfg, nil, quietLogger())
	if !errorsx.HasReason(err, errorsx.ReasonSinkSettings) {
		t.Fatalf("expected sink_settings, got %v", err)
	}

	cfg.Sinks = []SinkConfig{{Kind: "stdout", Settings: map[string]any{"colour": "red"}}}
	_, err = BuildPipeline(cfg, nil, quietLogger())
	if !errorsx.HasReason(err, errorsx.ReasonConfigInvalid) {
		t.Fatalf("expected config_invalid, got %v", err)
	}
}

func TestRegistryKinds(t *testing.T) {
	got := strings.Join(DefaultSinkRegistry().Kinds(), ",")
	if got != "jsonl,log,noop,stats,stdout,timeline" {
		t.Fatalf("unexpected kinds %q", got)
	}
}
