package metrics

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrSinkClosed = errors.New("sink closed")

type asyncItem struct {
	obs  Observation
	done chan struct{}
}

// AsyncSink moves delivery to a background goroutine. Observations are dropped
// when the buffer is full.
type AsyncSink struct {
	inner   Sink
	ch      chan asyncItem
	dropped atomic.Int64
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func NewAsyncSink(inner Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	if inner == nil {
		inner = NoopSink{}
	}
	a := &AsyncSink{
		inner:   inner,
		ch:      make(chan asyncItem, buffer),
		stopped: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncSink) Record(obs Observation) {
	if a == nil {
		return
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- asyncItem{obs: obs}:
	default:
		a.dropped.Add(1)
	}
}

func (a *AsyncSink) Dropped() int64 {
	return a.dropped.Load()
}

// Flush blocks until everything queued before the call has been delivered.
func (a *AsyncSink) Flush() error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrSinkClosed
	}
	done := make(chan struct{})
	a.ch <- asyncItem{done: done}
	a.mu.RUnlock()
	<-done
	if f, ok := a.inner.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close delivers what is queued and stops the worker.
func (a *AsyncSink) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.stopped
	if f, ok := a.inner.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (a *AsyncSink) loop() {
	defer close(a.stopped)
	for it := range a.ch {
		if it.done != nil {
			close(it.done)
			continue
		}
		a.inner.Record(it.obs)
	}
}
