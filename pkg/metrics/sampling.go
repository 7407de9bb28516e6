package metrics

import (
	"math"
	"sync/atomic"
)

// SamplingSink forwards roughly one in every 1/rate observations.
type SamplingSink struct {
	inner       Sink
	rate        float64
	sampleEvery uint64
	counter     uint64
}

func NewSamplingSink(inner Sink, rate float64) *SamplingSink {
	if rate > 1 {
		rate = 1
	}
	if rate < 0 {
		rate = 0
	}
	var every uint64
	if rate == 0 {
		every = 0
	} else if rate == 1 {
		every = 1
	} else {
		every = uint64(math.Round(1.0 / rate))
		if every == 0 {
			every = 1
		}
	}
	return &SamplingSink{inner: inner, rate: rate, sampleEvery: every}
}

func (s *SamplingSink) Record(obs Observation) {
	if s.rate == 0 || s.inner == nil {
		return
	}
	if s.sampleEvery <= 1 {
		s.inner.Record(obs)
		return
	}
	n := atomic.AddUint64(&s.counter, 1)
	if n%s.sampleEvery == 0 {
		s.inner.Record(obs)
	}
}

func (s *SamplingSink) Flush() error {
	if f, ok := s.inner.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
