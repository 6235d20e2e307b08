package dmgpacer

import (
	"sync"
	"time"
)

// Stats describes the work done by the run loop.
type Stats struct {
	Frames uint64 // budget loops completed, scheduled or stepped
	Steps  uint64
	Cycles uint64

	LastFrameTime time.Duration
	LastDelay     time.Duration // unclamped delay computed after the last frame
	Drift         time.Duration // drift carried into the pending tick
}

type statsCell struct {
	mu    sync.Mutex
	stats Stats
}

func (s *statsCell) load() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *statsCell) update(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}
