package runner

import (
	"bytes"
	"context"
	"io"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

type Hooks struct {
	OnStart func(ctx context.Context) error
	OnStop  func()
}

// Drainer flushes buffered work before shutdown, e.g. a sink pipeline.
type Drainer interface {
	Drain() error
}

const Version = "dev"

// PrintBanner writes the startup banner to w; nil disables it.
func PrintBanner(w io.Writer) {
	if w == nil {
		return
	}
	tpl := "{{ .Title \"CALLTIME\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}
