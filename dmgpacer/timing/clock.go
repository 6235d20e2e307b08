package timing

import "time"

// Clock is the timer facility the run loop schedules frames on.
type Clock interface {
	Now() time.Time

	// NewTimer returns a timer that delivers on C once d has elapsed.
	NewTimer(d time.Duration) Timer
}

// Timer is a single pending deadline.
type Timer interface {
	C() <-chan time.Time

	// Stop prevents the timer from firing. Returns false if it already fired.
	Stop() bool
}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time {
	return s.t.C
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}
