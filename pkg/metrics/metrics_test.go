package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatLine(t *testing.T) {
	obs := Observation{Method: "Exec", Duration: 250 * time.Millisecond}
	got := FormatLine(obs)
	want := "************************Exec (250 ms)\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDurationMsNeverNegative(t *testing.T) {
	obs := Observation{Duration: -5 * time.Millisecond}
	if obs.DurationMs() != 0 {
		t.Fatalf("expected 0, got %d", obs.DurationMs())
	}
}

func TestLineSinkConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLineSink(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Record(Observation{Method: "Ping", Duration: time.Millisecond})
		}()
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l != "************************Ping (1 ms)" {
			t.Fatalf("unexpected line %q", l)
		}
	}
}

func TestRecordFunc(t *testing.T) {
	var gotMethod string
	var gotMs int64
	sink := RecordFunc(func(method string, durationMs int64) {
		gotMethod = method
		gotMs = durationMs
	})
	sink.Record(Observation{Method: "Query", Duration: 1500 * time.Microsecond})
	if gotMethod != "Query" || gotMs != 1 {
		t.Fatalf("unexpected record: %s %d", gotMethod, gotMs)
	}
}

func TestJSONLSinkIncludesError(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	sink.Record(Observation{
		ID:       "id-1",
		Target:   "primary",
		Method:   "Exec",
		Duration: 3 * time.Millisecond,
		Outcome:  OutcomeFailure,
		Err:      errors.New("boom"),
	})
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["method"] != "Exec" || payload["error"] != "boom" || payload["target"] != "primary" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["duration_ms"].(float64) != 3 {
		t.Fatalf("expected duration 3, got %v", payload["duration_ms"])
	}
}

func TestJSONLSinkRedactsErrorText(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	sink.Record(Observation{
		Method:  "Exec",
		Outcome: OutcomeFailure,
		Err:     errors.New("connect failed: host=db password=hunter2"),
	})
	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("expected password to be masked, got %q", out)
	}
	if !strings.Contains(out, "password=[REDACTED]") {
		t.Fatalf("expected redaction marker in %q", out)
	}
}

func TestSamplingSinkRates(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want int
	}{
		{name: "zero drops everything", rate: 0, want: 0},
		{name: "one keeps everything", rate: 1, want: 10},
		{name: "half keeps every second", rate: 0.5, want: 5},
		{name: "clamped above one", rate: 3, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemorySink()
			s := NewSamplingSink(mem, tt.rate)
			for i := 0; i < 10; i++ {
				s.Record(Observation{Method: "Exec"})
			}
			if mem.Len() != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, mem.Len())
			}
		})
	}
}

func TestAsyncSinkFlushDelivers(t *testing.T) {
	mem := NewMemorySink()
	a := NewAsyncSink(mem, 16)
	for i := 0; i < 10; i++ {
		a.Record(Observation{Method: "Exec"})
	}
	if err := a.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if mem.Len() != 10 {
		t.Fatalf("expected 10 observations after flush, got %d", mem.Len())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	a.Record(Observation{Method: "late"})
	if mem.Len() != 10 {
		t.Fatalf("expected record after close to be ignored")
	}
	if err := a.Flush(); !errors.Is(err, ErrSinkClosed) {
		t.Fatalf("expected ErrSinkClosed, got %v", err)
	}
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := SinkFunc(func(Observation) { <-block })
	a := NewAsyncSink(inner, 1)
	for i := 0; i < 5; i++ {
		a.Record(Observation{Method: "Exec"})
	}
	close(block)
	_ = a.Close()
	if a.Dropped() == 0 {
		t.Fatalf("expected dropped observations")
	}
}
