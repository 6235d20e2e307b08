// Package backendtest provides a scripted backend.Controls for backend tests.
package backendtest

import (
	"context"
	"sync"

	"github.com/valerio/go-dmgpacer/dmgpacer"
)

// Controls records every call and follows the controller's transition
// rules closely enough for backend tests, without an emulator behind it.
type Controls struct {
	mu    sync.Mutex
	state dmgpacer.State
	calls []string
	stats dmgpacer.Stats
	fault error

	observers []func(dmgpacer.State)

	// Err, when set, is returned by the next call and then cleared.
	Err error
}

func NewControls(state dmgpacer.State) *Controls {
	return &Controls{state: state}
}

func (c *Controls) record(op string) error {
	c.calls = append(c.calls, op)
	err := c.Err
	c.Err = nil
	return err
}

func (c *Controls) Run(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("run"); err != nil {
		return err
	}
	c.state = dmgpacer.Running
	return nil
}

func (c *Controls) Pause(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("pause"); err != nil {
		return err
	}
	if c.state != dmgpacer.Running {
		return dmgpacer.ErrInvalidTransition
	}
	c.state = dmgpacer.Paused
	return nil
}

func (c *Controls) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("reset"); err != nil {
		return err
	}
	c.state = dmgpacer.Ready
	c.fault = nil
	return nil
}

func (c *Controls) Step(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("step"); err != nil {
		return 0, err
	}
	return 4, nil
}

func (c *Controls) StepFrame(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("stepFrame"); err != nil {
		return 0, err
	}
	return 69908, nil
}

func (c *Controls) State() dmgpacer.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controls) Stats() dmgpacer.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// SetStats changes what Stats returns.
func (c *Controls) SetStats(s dmgpacer.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
}

// Calls returns the operations invoked so far, in order.
func (c *Controls) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Controls) Fault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

func (c *Controls) OnStateChange(fn func(dmgpacer.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Halt behaves like the controller after an emulation fault: it records
// err as an *dmgpacer.EmulationFault, moves to Paused and notifies the
// state observers.
func (c *Controls) Halt(err error) {
	c.mu.Lock()
	c.fault = &dmgpacer.EmulationFault{Frame: c.stats.Frames, Err: err}
	c.state = dmgpacer.Paused
	observers := append(([]func(dmgpacer.State))(nil), c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(dmgpacer.Paused)
	}
}
