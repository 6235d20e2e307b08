package video

import (
	"sync"
	"sync/atomic"
)

// Canvas is anything that can fill a ScreenBuffer, normally the emulator.
type Canvas interface {
	CanvasBuffer(buf []byte)
}

// Frame is handed to observers after each publish. Pixels aliases the
// publisher's buffer and is only valid for the duration of the callback.
type Frame struct {
	Seq    uint64
	Pixels ScreenBuffer
}

type observer struct {
	id uint64
	fn func(Frame)
}

// Publisher owns the single ScreenBuffer and tells observers when it has
// been refilled. Publish must only be called from one goroutine; Subscribe
// may be called from anywhere.
type Publisher struct {
	buf    ScreenBuffer
	frames atomic.Uint64

	mu        sync.Mutex
	nextID    uint64
	observers atomic.Pointer[[]observer]
}

func NewPublisher() *Publisher {
	p := &Publisher{buf: NewScreenBuffer()}
	p.observers.Store(&[]observer{})
	return p
}

// Buffer returns the buffer frames are written into.
func (p *Publisher) Buffer() ScreenBuffer {
	return p.buf
}

// Frames returns the number of frames published so far.
func (p *Publisher) Frames() uint64 {
	return p.frames.Load()
}

// Publish fills the buffer from c and notifies observers synchronously.
// It returns the sequence number of the published frame, starting at 1.
func (p *Publisher) Publish(c Canvas) uint64 {
	c.CanvasBuffer(p.buf)
	seq := p.frames.Add(1)

	frame := Frame{Seq: seq, Pixels: p.buf}
	for _, o := range *p.observers.Load() {
		o.fn(frame)
	}
	return seq
}

// Subscribe registers fn to be called after every publish.
func (p *Publisher) Subscribe(fn func(Frame)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	current := *p.observers.Load()
	next := make([]observer, len(current), len(current)+1)
	copy(next, current)
	next = append(next, observer{id: id, fn: fn})
	p.observers.Store(&next)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		current := *p.observers.Load()
		next := make([]observer, 0, len(current))
		for _, o := range current {
			if o.id != id {
				next = append(next, o)
			}
		}
		p.observers.Store(&next)
	}
}
