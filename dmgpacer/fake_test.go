package dmgpacer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valerio/go-dmgpacer/dmgpacer/joypad"
	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
	"github.com/valerio/go-dmgpacer/dmgpacer/timing/timingtest"
)

// fakeCore builds fakeEmulators and keeps score of their lifecycle.
type fakeCore struct {
	mu            sync.Mutex
	cyclesPerStep int
	stepErr       error
	buildErr      error
	advance       time.Duration
	clock         *timingtest.Clock

	// when gate is set the factory signals entered and blocks until gate closes
	gate    chan struct{}
	entered chan struct{}

	built, freed, live, maxLive, doubleFrees int
	steps                                    int
	joypad                                   []joypad.State
}

type coreCounts struct {
	built, freed, live, maxLive, doubleFrees, steps int
}

func newFakeCore() *fakeCore {
	return &fakeCore{cyclesPerStep: 10000}
}

func (f *fakeCore) factory(bios, rom []byte) (Emulator, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.built++
	f.live++
	f.maxLive = max(f.maxLive, f.live)
	return &fakeEmulator{core: f, id: f.built}, nil
}

// block makes the next constructions wait for the returned release func.
func (f *fakeCore) block() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	gate := f.gate
	return f.entered, func() {
		f.mu.Lock()
		f.gate = nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeCore) set(fn func(f *fakeCore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeCore) counts() coreCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return coreCounts{
		built:       f.built,
		freed:       f.freed,
		live:        f.live,
		maxLive:     f.maxLive,
		doubleFrees: f.doubleFrees,
		steps:       f.steps,
	}
}

func (f *fakeCore) lastJoypad() (joypad.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.joypad) == 0 {
		return 0, false
	}
	return f.joypad[len(f.joypad)-1], true
}

type fakeEmulator struct {
	core  *fakeCore
	id    int
	freed bool
}

func (e *fakeEmulator) Step() (int, error) {
	f := e.core
	f.mu.Lock()
	f.steps++
	cycles, err, advance, clock := f.cyclesPerStep, f.stepErr, f.advance, f.clock
	f.mu.Unlock()

	if advance > 0 {
		clock.Advance(advance)
	}
	return cycles, err
}

func (e *fakeEmulator) CanvasBuffer(buf []byte) {
	buf[0] = byte(e.id)
}

func (e *fakeEmulator) SetJoypad(state joypad.State) {
	e.core.mu.Lock()
	e.core.joypad = append(e.core.joypad, state)
	e.core.mu.Unlock()
}

func (e *fakeEmulator) Free() {
	f := e.core
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.freed {
		f.doubleFrees++
		return
	}
	e.freed = true
	f.freed++
	f.live--
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, core *fakeCore, opts ...Option) (*Controller, *timingtest.Clock) {
	t.Helper()
	clock := timingtest.NewClock()
	core.set(func(f *fakeCore) { f.clock = clock })

	opts = append([]Option{WithClock(clock), WithLogger(discardLogger())}, opts...)
	c := NewController(core.factory, opts...)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// driveTo brings a fresh controller into the requested state.
func driveTo(t *testing.T, ctx context.Context, c *Controller, s State) {
	t.Helper()
	if s == Uninitialized {
		return
	}
	require.NoError(t, c.Initialize(ctx, nil, []byte{0x00}))
	switch s {
	case Running:
		require.NoError(t, c.Run(ctx))
	case Paused:
		require.NoError(t, c.Run(ctx))
		require.NoError(t, c.Pause(ctx))
	}
	require.Equal(t, s, c.State())
}

// tickFrames lets n scheduled ticks run and waits for each to re-arm.
func tickFrames(t *testing.T, ctx context.Context, clock *timingtest.Clock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, clock.WaitForTimers(ctx, 1))
		clock.Advance(timing.FramePeriod)
	}
	require.NoError(t, clock.WaitForTimers(ctx, 1))
}
