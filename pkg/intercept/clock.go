package intercept

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
