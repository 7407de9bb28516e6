package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTransition = errors.New("runner: invalid state transition")
	ErrDrainTimeout      = errors.New("runner: drain timeout")
)

type Option func(*LifecycleRunner)

func WithBanner(w io.Writer) Option {
	return func(r *LifecycleRunner) { r.bannerOut = w }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *LifecycleRunner) {
		if log != nil {
			r.log = log
		}
	}
}

// LifecycleRunner runs until its context ends or Stop is called, then drains.
type LifecycleRunner struct {
	state     atomic.Int32
	mu        sync.Mutex
	cancel    context.CancelFunc
	onceStop  sync.Once
	hooks     Hooks
	drainer   Drainer
	stopErr   error
	timeout   time.Duration
	bannerOut io.Writer
	log       *slog.Logger
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration, opts ...Option) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &LifecycleRunner{
		hooks:   hooks,
		drainer: drainer,
		timeout: timeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return ErrInvalidTransition
	}
	if ctx == nil {
		ctx = context.Background()
	}
	PrintBanner(r.bannerOut)
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	if r.hooks.OnStart != nil {
		if err := r.hooks.OnStart(ctx); err != nil {
			cancel()
			return errors.Join(err, r.stop())
		}
	}
	r.setState(StateRunning)
	r.log.Info("runner started")
	<-ctx.Done()
	return r.stop()
}

func (r *LifecycleRunner) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(r.state.Load())
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		if r.drainer != nil {
			done := make(chan error, 1)
			go func() { done <- r.drainer.Drain() }()
			select {
			case err := <-done:
				r.stopErr = err
			case <-time.After(r.timeout):
				r.stopErr = ErrDrainTimeout
			}
		}
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.setState(StateStopped)
		r.log.Info("runner stopped", "error", r.stopErr)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	r.state.Store(int32(s))
}
