package timing

import "time"

// Constants for Game Boy timing
const (
	CPUFrequency = 4194304

	// CyclesPerFrame is the pacing budget: one sixtieth of a second of CPU
	// time, 69905 cycles. The LCD itself completes a frame every 70224 cycles, the run loop
	// does not try to align with it.
	CyclesPerFrame = CPUFrequency / 60

	// FramePeriod is the wall-clock target for one frame.
	FramePeriod = 16700 * time.Microsecond
)

// TargetFPS is the frame rate implied by FramePeriod.
func TargetFPS() float64 {
	return float64(time.Second) / float64(FramePeriod)
}

// NextDelay computes how long to wait before the next frame given the time
// the current frame took and the delay carried from the previous frame.
// Only a negative carry (the previous frame overran) is folded in; the
// result is unclamped and becomes the carry for the following frame.
func NextDelay(period, frameTime, carried time.Duration) time.Duration {
	next := period - frameTime
	if carried < 0 {
		next += carried
	}
	return next
}

// Wait clamps a delay computed by NextDelay to a valid timer duration.
func Wait(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return delay
}
