package dmgpacer

import (
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
)

// FrameScheduler owns the one pending frame tick and the per-frame budget
// loop. It is not safe for concurrent use; the controller's owner goroutine
// is its only caller.
type FrameScheduler struct {
	clock  timing.Clock
	budget int
	period time.Duration

	timer timing.Timer
	drift time.Duration
	armed uint64
}

func NewFrameScheduler(clock timing.Clock, budget int, period time.Duration) *FrameScheduler {
	return &FrameScheduler{
		clock:  clock,
		budget: budget,
		period: period,
	}
}

// Arm schedules the next tick after delay, carrying drift into it. Any
// pending tick is cancelled first so at most one is ever outstanding.
func (s *FrameScheduler) Arm(delay, drift time.Duration) {
	s.Cancel()
	s.timer = s.clock.NewTimer(delay)
	s.drift = drift
	s.armed++
}

// Cancel drops the pending tick. Returns false if nothing was pending.
func (s *FrameScheduler) Cancel() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.drift = 0
	return true
}

// C returns the pending tick's channel, or nil when idle so that a select
// on it blocks forever.
func (s *FrameScheduler) C() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C()
}

// Fire consumes the pending tick and returns the drift it carried.
func (s *FrameScheduler) Fire() time.Duration {
	drift := s.drift
	s.timer = nil
	s.drift = 0
	return drift
}

// RunFrame steps the emulator until the frame budget is spent and reports
// the cycles run and how long that took on the scheduler's clock.
func (s *FrameScheduler) RunFrame(step timing.Stepper) (int, time.Duration, error) {
	start := s.clock.Now()
	cycles, err := timing.RunBudget(step, s.budget)
	return cycles, s.clock.Now().Sub(start), err
}

// Next returns the delay before the tick that follows a frame which took
// frameTime, given the drift that frame started with.
func (s *FrameScheduler) Next(frameTime, carried time.Duration) time.Duration {
	return timing.NextDelay(s.period, frameTime, carried)
}

// Armed returns how many ticks have been scheduled so far.
func (s *FrameScheduler) Armed() uint64 {
	return s.armed
}
