package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonSinkOpen)
	if Reason(err) != ReasonSinkOpen {
		t.Fatalf("expected reason %s, got %s", ReasonSinkOpen, Reason(err))
	}
	if !HasReason(err, ReasonSinkOpen) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonConfigRead)
	second := Wrap(first, ReasonComponentInit)
	if Reason(second) != ReasonConfigRead {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestReasonThroughFmtWrap(t *testing.T) {
	inner := Wrap(assertErr{}, ReasonDataSourceOpen)
	outer := fmt.Errorf("open primary: %w", inner)
	if Reason(outer) != ReasonDataSourceOpen {
		t.Fatalf("expected reason through fmt wrap, got %s", Reason(outer))
	}
	if !errors.Is(outer, assertErr{}) {
		t.Fatalf("expected original error reachable")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ReasonComponentMissing, "component %q not registered", "db")
	if err.Error() != `component "db" not registered` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if Reason(err) != ReasonComponentMissing {
		t.Fatalf("unexpected reason %s", Reason(err))
	}
	if Reason(nil) != ReasonUnknown || Wrap(nil, ReasonSinkOpen) != nil {
		t.Fatalf("nil handling broken")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestWrapfAddsContext(t *testing.T) {
	err := Wrapf(assertErr{}, ReasonSinkOpen, "open %s", "events.jsonl")
	if err.Error() != "open events.jsonl: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !HasReason(err, ReasonSinkOpen) {
		t.Fatalf("expected reason %s", ReasonSinkOpen)
	}
}
