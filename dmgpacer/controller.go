package dmgpacer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/input"
	"github.com/valerio/go-dmgpacer/dmgpacer/joypad"
	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

const progressLogInterval = 60

// Controller paces an emulator against the wall clock and exposes the
// run/pause/reset and debug stepping controls.
//
// Everything that touches the emulator runs on one owner goroutine. Public
// methods post a closure to it and wait for the result, so errors are
// reported synchronously and a cancelled tick can never run.
type Controller struct {
	factory   Factory
	clock     timing.Clock
	router    *input.Router
	publisher *video.Publisher
	log       *slog.Logger
	budget    int
	period    time.Duration

	// owned by the loop goroutine
	sched     *FrameScheduler
	emu       Emulator
	counter   stepCounter
	bios, rom []byte
	everBuilt bool
	building  bool

	state     atomic.Int32
	fault     atomic.Pointer[EmulationFault]
	stats     statsCell
	obsMu     sync.Mutex
	observers []func(State)

	reqs     chan func()
	wake     chan struct{}
	built    chan buildResult
	quit     chan struct{}
	done     chan struct{}
	builders sync.WaitGroup
	once     sync.Once
	unbind   func()
}

type buildResult struct {
	op     string
	emu    Emulator
	err    error
	result chan<- error
}

// stepCounter counts the steps taken through it. It is handed to the
// budget loop by pointer so the hot path does not allocate.
type stepCounter struct {
	emu   Emulator
	steps uint64
}

func (s *stepCounter) Step() (int, error) {
	s.steps++
	return s.emu.Step()
}

// NewController starts the owner goroutine. The controller stays
// Uninitialized until Initialize succeeds. Call Close to stop it.
func NewController(factory Factory, opts ...Option) *Controller {
	c := &Controller{
		factory: factory,
		budget:  timing.CyclesPerFrame,
		period:  timing.FramePeriod,
		reqs:    make(chan func()),
		wake:    make(chan struct{}, 1),
		built:   make(chan buildResult),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = timing.System()
	}
	if c.router == nil {
		c.router = input.NewRouter()
	}
	if c.publisher == nil {
		c.publisher = video.NewPublisher()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.sched = NewFrameScheduler(c.clock, c.budget, c.period)
	c.unbind = c.router.Bind(c)

	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.done)

	for {
		select {
		case req := <-c.reqs:
			req()
		case <-c.sched.C():
			c.tick()
		case <-c.wake:
			if c.emu != nil {
				c.emu.SetJoypad(c.router.Snapshot())
			}
		case r := <-c.built:
			c.install(r)
		case <-c.quit:
			c.shutdown()
			return
		}
	}
}

// exec runs fn on the owner goroutine and returns its error.
func (c *Controller) exec(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	req := func() { errc <- fn() }

	select {
	case c.reqs <- req:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-errc
}

// Initialize builds the emulator from bios and rom and moves the controller
// to Ready. Construction runs off the owner goroutine. If ctx ends first the
// construction still completes and is installed.
func (c *Controller) Initialize(ctx context.Context, bios, rom []byte) error {
	result := make(chan error, 1)
	err := c.exec(ctx, func() error {
		if c.building {
			return ErrBusy
		}
		if c.everBuilt {
			return invalidTransition("initialize", c.State())
		}
		c.bios = slices.Clone(bios)
		c.rom = slices.Clone(rom)
		c.startBuild("initialize", result)
		return nil
	})
	if err != nil {
		return err
	}
	return c.await(ctx, result)
}

// Run starts continuous execution from Ready or Paused.
func (c *Controller) Run(ctx context.Context) error {
	return c.exec(ctx, func() error {
		if err := c.checkIdle("run"); err != nil {
			return err
		}
		c.sched.Arm(0, 0)
		c.setState(Running)
		return nil
	})
}

// Pause stops continuous execution. The pending tick is cancelled and will
// not run.
func (c *Controller) Pause(ctx context.Context) error {
	return c.exec(ctx, func() error {
		if c.building {
			return ErrBusy
		}
		if s := c.State(); s != Running {
			return invalidTransition("pause", s)
		}
		c.sched.Cancel()
		c.setState(Paused)
		return nil
	})
}

// Reset replaces the emulator with a fresh one built from the same inputs,
// publishes its first frame and moves to Ready. The old emulator is freed
// before the new one is built, so the controller reports Uninitialized
// while the rebuild is in progress. Reset is also the way to retry after a
// failed reset.
func (c *Controller) Reset(ctx context.Context) error {
	result := make(chan error, 1)
	err := c.exec(ctx, func() error {
		if c.building {
			return ErrBusy
		}
		if !c.everBuilt {
			return invalidTransition("reset", c.State())
		}
		c.sched.Cancel()
		c.fault.Store(nil)
		c.freeEmulator()
		c.startBuild("reset", result)
		return nil
	})
	if err != nil {
		return err
	}
	return c.await(ctx, result)
}

// Step executes a single instruction and returns the cycles it took.
// Nothing is published.
func (c *Controller) Step(ctx context.Context) (int, error) {
	var cycles int
	err := c.exec(ctx, func() error {
		if err := c.checkIdle("step"); err != nil {
			return err
		}
		var err error
		cycles, err = c.counter.Step()
		c.stats.update(func(s *Stats) {
			s.Steps = c.counter.steps
			if cycles > 0 {
				s.Cycles += uint64(cycles)
			}
		})
		if err != nil {
			return c.halt(err)
		}
		return nil
	})
	return cycles, err
}

// StepFrame runs one full frame budget and publishes the result without
// scheduling anything. The state is left unchanged.
func (c *Controller) StepFrame(ctx context.Context) (int, error) {
	var cycles int
	err := c.exec(ctx, func() error {
		if err := c.checkIdle("step frame"); err != nil {
			return err
		}
		c.emu.SetJoypad(c.router.Snapshot())
		var frameTime time.Duration
		var err error
		cycles, frameTime, err = c.sched.RunFrame(&c.counter)
		if err != nil {
			c.recordSteps(cycles)
			return c.halt(err)
		}
		c.publisher.Publish(c.emu)
		c.stats.update(func(s *Stats) {
			s.Frames++
			s.Steps = c.counter.steps
			s.Cycles += uint64(cycles)
			s.LastFrameTime = frameTime
		})
		return nil
	})
	return cycles, err
}

// State returns the current state. Safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Fault returns the emulation fault that halted the run loop, or nil.
func (c *Controller) Fault() error {
	if f := c.fault.Load(); f != nil {
		return f
	}
	return nil
}

// Stats returns a snapshot of the run loop counters.
func (c *Controller) Stats() Stats {
	return c.stats.load()
}

// Router returns the router the controller reads joypad state from.
func (c *Controller) Router() *input.Router {
	return c.router
}

// Publisher returns the publisher frames are delivered through.
func (c *Controller) Publisher() *video.Publisher {
	return c.publisher
}

// ApplyInput pushes the router's held set to the emulator without waiting
// for the next frame. Called by the router on every change. The argument is
// ignored: the loop reads the router when it wakes, so with edges arriving
// from several goroutines the emulator still ends up with the latest set.
func (c *Controller) ApplyInput(joypad.State) {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// OnStateChange registers fn to be called after every state transition.
// fn runs on the owner goroutine and must not call back into the
// controller.
func (c *Controller) OnStateChange(fn func(State)) {
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// Close stops the run loop and frees the emulator. Safe to call more than once.
func (c *Controller) Close() error {
	c.once.Do(func() {
		close(c.quit)
	})
	<-c.done
	c.builders.Wait()
	return nil
}

func (c *Controller) await(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkIdle validates the preconditions shared by Run, Step and StepFrame.
func (c *Controller) checkIdle(op string) error {
	if c.building {
		return ErrBusy
	}
	if f := c.fault.Load(); f != nil {
		return halted(f)
	}
	if s := c.State(); !s.canStep() {
		return invalidTransition(op, s)
	}
	return nil
}

func (c *Controller) startBuild(op string, result chan<- error) {
	c.building = true
	c.setState(Uninitialized)

	bios, rom := c.bios, c.rom
	c.builders.Add(1)
	go func() {
		defer c.builders.Done()

		emu, err := c.factory(bios, rom)
		select {
		case c.built <- buildResult{op: op, emu: emu, err: err, result: result}:
		case <-c.done:
			if err == nil && emu != nil {
				emu.Free()
			}
			result <- ErrClosed
		}
	}()
}

func (c *Controller) install(r buildResult) {
	c.building = false
	if r.err != nil {
		c.log.Error("Failed to construct emulator", "op", r.op, "error", r.err)
		r.result <- &ConstructionError{Op: r.op, Err: r.err}
		return
	}

	c.emu = r.emu
	c.counter.emu = r.emu
	c.everBuilt = true
	c.emu.SetJoypad(c.router.Snapshot())
	if r.op == "reset" {
		c.publisher.Publish(c.emu)
	}
	c.log.Info("Emulator ready", "op", r.op)
	c.setState(Ready)
	r.result <- nil
}

func (c *Controller) tick() {
	carried := c.sched.Fire()
	if c.emu == nil || c.State() != Running {
		return
	}

	c.emu.SetJoypad(c.router.Snapshot())
	cycles, frameTime, err := c.sched.RunFrame(&c.counter)
	if err != nil {
		c.recordSteps(cycles)
		c.halt(err)
		return
	}

	next := c.sched.Next(frameTime, carried)
	seq := c.publisher.Publish(c.emu)

	var frames uint64
	c.stats.update(func(s *Stats) {
		s.Frames++
		s.Steps = c.counter.steps
		s.Cycles += uint64(cycles)
		s.LastFrameTime = frameTime
		s.LastDelay = next
		s.Drift = next
		frames = s.Frames
	})
	if frames%progressLogInterval == 0 {
		c.log.Debug("Frame complete", "frame", frames, "seq", seq, "frameTime", frameTime, "delay", next)
	}

	c.sched.Arm(timing.Wait(next), next)
}

func (c *Controller) recordSteps(cycles int) {
	c.stats.update(func(s *Stats) {
		s.Steps = c.counter.steps
		s.Cycles += uint64(cycles)
	})
}

// halt stops scheduling after the emulator failed and parks the controller
// in Paused until the next reset.
func (c *Controller) halt(err error) error {
	c.sched.Cancel()
	fault := &EmulationFault{Frame: c.stats.load().Frames, Err: err}
	c.fault.Store(fault)
	c.log.Error("Emulation fault, scheduling halted", "frame", fault.Frame, "error", err)
	if c.State() != Paused {
		c.setState(Paused)
	}
	return fault
}

func (c *Controller) freeEmulator() {
	if c.emu == nil {
		return
	}
	c.emu.Free()
	c.emu = nil
	c.counter.emu = nil
}

func (c *Controller) shutdown() {
	c.sched.Cancel()
	c.freeEmulator()
	c.unbind()
	c.setState(Uninitialized)
	c.log.Debug("Controller closed")
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	c.log.Debug("State change", "from", prev, "to", s)

	c.obsMu.Lock()
	observers := slices.Clone(c.observers)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(s)
	}
}
