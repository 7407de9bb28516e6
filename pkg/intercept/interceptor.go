package intercept

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/harunnryd/calltime/pkg/metrics"
)

// Interceptor holds only immutable configuration, so one value can be shared by
// any number of wrappers and goroutines.
type Interceptor struct {
	sink   metrics.Sink
	clock  Clock
	target string
	newID  func() string
	log    *slog.Logger
}

type Option func(*Interceptor)

func WithSink(sink metrics.Sink) Option {
	return func(ic *Interceptor) {
		if sink != nil {
			ic.sink = sink
		}
	}
}

func WithClock(clock Clock) Option {
	return func(ic *Interceptor) {
		if clock != nil {
			ic.clock = clock
		}
	}
}

// WithTarget labels observations with the name of the wrapped object.
func WithTarget(name string) Option {
	return func(ic *Interceptor) { ic.target = name }
}

func WithIDGenerator(fn func() string) Option {
	return func(ic *Interceptor) {
		if fn != nil {
			ic.newID = fn
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(ic *Interceptor) {
		if log != nil {
			ic.log = log
		}
	}
}

// New builds an interceptor. Without options it writes one line per call to
// standard output.
func New(opts ...Option) *Interceptor {
	ic := &Interceptor{
		sink:  metrics.StdoutSink(),
		clock: SystemClock(),
		newID: uuid.NewString,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

func (ic *Interceptor) Target() string { return ic.target }

func (ic *Interceptor) Sink() metrics.Sink { return ic.sink }

// Named returns a copy of ic that labels observations with target.
func (ic *Interceptor) Named(target string) *Interceptor {
	cp := *ic
	cp.target = target
	return &cp
}

// Observe runs fn and emits exactly one observation once fn returns or panics.
// fn's error is returned as is; a panic keeps unwinding after the emission.
func (ic *Interceptor) Observe(method string, fn func() error) error {
	start := ic.clock.Now()
	outcome := metrics.OutcomePanic
	var err error
	defer func() {
		elapsed := ic.clock.Now().Sub(start)
		if elapsed < 0 {
			elapsed = 0
		}
		ic.sink.Record(metrics.Observation{
			ID:       ic.newID(),
			Target:   ic.target,
			Method:   method,
			Start:    start,
			Duration: elapsed,
			Outcome:  outcome,
			Err:      err,
		})
	}()
	err = fn()
	if err != nil {
		outcome = metrics.OutcomeFailure
	} else {
		outcome = metrics.OutcomeSuccess
	}
	return err
}

// Call times fn and returns its result and error unchanged.
func Call[T any](ic *Interceptor, method string, fn func() (T, error)) (T, error) {
	var out T
	err := ic.Observe(method, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// Do times a call that cannot fail.
func Do(ic *Interceptor, method string, fn func()) {
	_ = ic.Observe(method, func() error {
		fn()
		return nil
	})
}
