package metrics

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const linePrefix = "************************"

// LineSink writes one human-readable line per observation.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink writes to w, or discards output when w is nil.
func NewLineSink(w io.Writer) *LineSink {
	if w == nil {
		w = io.Discard
	}
	return &LineSink{w: w}
}

// StdoutSink is the default sink used by interceptors.
func StdoutSink() *LineSink {
	return NewLineSink(os.Stdout)
}

func (s *LineSink) Record(obs Observation) {
	line := FormatLine(obs)
	s.mu.Lock()
	_, _ = io.WriteString(s.w, line)
	s.mu.Unlock()
}

// FormatLine renders "<prefix><method> (<ms> ms)\n".
func FormatLine(obs Observation) string {
	return fmt.Sprintf("%s%s (%d ms)\n", linePrefix, obs.Method, obs.DurationMs())
}
