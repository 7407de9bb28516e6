package observers

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/calltime/pkg/metrics"
)

// MethodStats aggregates every observation recorded for one method.
type MethodStats struct {
	Target   string
	Method   string
	Count    int64
	Failures int64
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
}

func (s MethodStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type statsKey struct {
	target string
	method string
}

// StatsSink keeps running per-method aggregates in memory.
type StatsSink struct {
	mu    sync.Mutex
	stats map[statsKey]*MethodStats
}

func NewStatsSink() *StatsSink {
	return &StatsSink{stats: make(map[statsKey]*MethodStats)}
}

func (s *StatsSink) Record(obs metrics.Observation) {
	d := obs.Duration
	if d < 0 {
		d = 0
	}
	key := statsKey{target: obs.Target, method: obs.Method}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[key]
	if st == nil {
		st = &MethodStats{Target: obs.Target, Method: obs.Method, Min: d, Max: d}
		s.stats[key] = st
	}
	st.Count++
	if obs.Failed() {
		st.Failures++
	}
	st.Total += d
	if d < st.Min {
		st.Min = d
	}
	if d > st.Max {
		st.Max = d
	}
}

// Snapshot returns the aggregates ordered by target then method.
func (s *StatsSink) Snapshot() []MethodStats {
	s.mu.Lock()
	out := make([]MethodStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Log writes one summary line per method.
func (s *StatsSink) Log(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for _, st := range s.Snapshot() {
		log.Info("call stats",
			"target", st.Target,
			"method", st.Method,
			"count", st.Count,
			"failures", st.Failures,
			"mean_ms", st.Mean().Milliseconds(),
			"min_ms", st.Min.Milliseconds(),
			"max_ms", st.Max.Milliseconds(),
		)
	}
}

func (s *StatsSink) Reset() {
	s.mu.Lock()
	s.stats = make(map[statsKey]*MethodStats)
	s.mu.Unlock()
}
