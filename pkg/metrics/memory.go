package metrics

import "sync"

type MemorySink struct {
	mu  sync.Mutex
	obs []Observation
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(obs Observation) {
	m.mu.Lock()
	m.obs = append(m.obs, obs)
	m.mu.Unlock()
}

// Observations returns a copy of everything recorded so far.
func (m *MemorySink) Observations() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Observation, len(m.obs))
	copy(out, m.obs)
	return out
}

func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.obs)
}

func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.obs = nil
	m.mu.Unlock()
}
