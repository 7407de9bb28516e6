package metrics

import "time"

// Outcome classifies how an intercepted call returned.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePanic   Outcome = "panic"
)

// Observation is the timing record emitted once per intercepted call.
type Observation struct {
	ID       string
	Target   string
	Method   string
	Start    time.Time
	Duration time.Duration
	Outcome  Outcome
	// Err is the delegated call's error, exactly as it was returned.
	Err error
}

// DurationMs returns the elapsed time in whole milliseconds.
func (o Observation) DurationMs() int64 {
	if o.Duration < 0 {
		return 0
	}
	return o.Duration.Milliseconds()
}

// Failed reports whether the call returned an error or panicked.
func (o Observation) Failed() bool {
	return o.Outcome == OutcomeFailure || o.Outcome == OutcomePanic
}

// ErrText returns the error message, or "" for successful calls.
func (o Observation) ErrText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Sink receives observations synchronously after each intercepted call.
type Sink interface {
	Record(obs Observation)
}

type Flusher interface {
	Flush() error
}

// RecordFunc adapts a plain record(method, durationMs) callback to a Sink.
type RecordFunc func(method string, durationMs int64)

func (f RecordFunc) Record(obs Observation) {
	f(obs.Method, obs.DurationMs())
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(obs Observation)

func (f SinkFunc) Record(obs Observation) {
	f(obs)
}

type NoopSink struct{}

func (NoopSink) Record(Observation) {}
