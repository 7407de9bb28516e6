package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/calltime/pkg/metrics"
	"github.com/harunnryd/calltime/pkg/redact"
)

const defaultTimelineID = "default"

// TimelineSink appends each observation to <dir>/<target>.jsonl. Observations
// without a target go to default.jsonl.
type TimelineSink struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
	errs  error
}

func NewTimelineSink(dir string) *TimelineSink {
	return &TimelineSink{dir: dir, files: make(map[string]*os.File)}
}

type timelineEntry struct {
	Time       time.Time `json:"time"`
	ID         string    `json:"id,omitempty"`
	Target     string    `json:"target,omitempty"`
	Method     string    `json:"method"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

func (s *TimelineSink) Record(obs metrics.Observation) {
	if strings.TrimSpace(s.dir) == "" {
		return
	}
	id := sanitizeID(obs.Target)
	if id == "" {
		id = defaultTimelineID
	}
	entry := timelineEntry{
		Time:       obs.Start.UTC(),
		ID:         obs.ID,
		Target:     obs.Target,
		Method:     obs.Method,
		DurationMs: obs.DurationMs(),
		Outcome:    string(obs.Outcome),
		Error:      redact.Text(obs.ErrText()),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.fileForLocked(id)
	if f == nil {
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.errs = errors.Join(s.errs, err)
	}
}

// Flush syncs open files and reports write errors seen since the last flush.
func (s *TimelineSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.errs
	s.errs = nil
	for _, f := range s.files {
		if serr := f.Sync(); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return err
}

// Close closes any open files.
func (s *TimelineSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.errs
	s.errs = nil
	for _, f := range s.files {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	s.files = make(map[string]*os.File)
	return err
}

func (s *TimelineSink) fileForLocked(id string) *os.File {
	if f := s.files[id]; f != nil {
		return f
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.errs = errors.Join(s.errs, err)
		return nil
	}
	path := filepath.Join(s.dir, id+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.errs = errors.Join(s.errs, err)
		return nil
	}
	s.files[id] = f
	return f
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

var _ metrics.Sink = (*TimelineSink)(nil)
