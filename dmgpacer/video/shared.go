package video

import "sync"

// Shared holds the latest frame for readers on other goroutines. The run
// loop writes into one buffer under the lock; Read copies it into a second
// buffer so callers can use the result without holding the lock.
type Shared struct {
	mu          sync.Mutex
	writePixels ScreenBuffer
	readPixels  ScreenBuffer
	seq         uint64
}

func NewShared() *Shared {
	return &Shared{
		writePixels: NewScreenBuffer(),
		readPixels:  NewScreenBuffer(),
	}
}

// Update copies f into the shared buffer. Suitable as a Publisher observer.
func (s *Shared) Update(f Frame) {
	s.mu.Lock()
	copy(s.writePixels, f.Pixels)
	s.seq = f.Seq
	s.mu.Unlock()
}

// Read returns a snapshot of the latest frame and its sequence number. The
// returned buffer is reused by the next call to Read.
func (s *Shared) Read() (ScreenBuffer, uint64) {
	s.mu.Lock()
	copy(s.readPixels, s.writePixels)
	seq := s.seq
	s.mu.Unlock()
	return s.readPixels, seq
}
