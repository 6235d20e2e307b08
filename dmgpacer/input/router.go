package input

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/valerio/go-dmgpacer/dmgpacer/joypad"
)

// Sink is notified with the full held-button set every time it changes.
type Sink interface {
	ApplyInput(state joypad.State)
}

// Router turns key edges into joypad state.
//
// The held set is tracked across edges and pushed whole, since cores
// replace their button state on every SetJoypad. The current set lives in a
// single cell: key callbacks write it, the run loop reads it with Snapshot.
type Router struct {
	mu      sync.Mutex
	held    atomic.Uint32
	sink    Sink
	binding uint64
}

func NewRouter() *Router {
	return &Router{}
}

// KeyDown handles a key press. Returns false for unmapped key codes.
func (r *Router) KeyDown(code KeyCode) bool {
	return r.edge(code, true)
}

// KeyUp handles a key release. Returns false for unmapped key codes.
func (r *Router) KeyUp(code KeyCode) bool {
	return r.edge(code, false)
}

func (r *Router) edge(code KeyCode, pressed bool) bool {
	btn, ok := Lookup(code)
	if !ok {
		return false
	}
	r.Set(btn, pressed)
	return true
}

// Set presses or releases a single button. Edges that leave the held set
// unchanged, such as key auto-repeat, do nothing.
func (r *Router) Set(btn joypad.Button, pressed bool) {
	r.mu.Lock()
	prev := joypad.State(r.held.Load())
	next := prev.Set(btn, pressed)
	if next == prev {
		r.mu.Unlock()
		return
	}
	r.held.Store(uint32(next))
	sink := r.sink
	r.mu.Unlock()

	slog.Debug("Joypad edge", "button", btn, "pressed", pressed, "held", next)
	if sink != nil {
		sink.ApplyInput(next)
	}
}

// Release lets go of every held button.
func (r *Router) Release() {
	r.mu.Lock()
	if r.held.Load() == 0 {
		r.mu.Unlock()
		return
	}
	r.held.Store(0)
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink.ApplyInput(0)
	}
}

// Snapshot returns the held set.
func (r *Router) Snapshot() joypad.State {
	return joypad.State(r.held.Load())
}

// Bind makes s the router's only subscriber, replacing any previous one.
// The returned function removes the binding if it is still current.
func (r *Router) Bind(s Sink) (unbind func()) {
	r.mu.Lock()
	r.binding++
	id := r.binding
	r.sink = s
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.binding == id {
			r.sink = nil
		}
	}
}
