package headless_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/backendtest"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/headless"
	"github.com/valerio/go-dmgpacer/dmgpacer/joypad"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

type blankCanvas struct{}

func (blankCanvas) CanvasBuffer([]byte) {}

func runAsync(ctx context.Context, h *headless.Backend) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()
	return errc
}

func TestHeadlessBackend(t *testing.T) {
	t.Run("normal operation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		controls := backendtest.NewControls(dmgpacer.Ready)
		publisher := video.NewPublisher()
		h := headless.New(3, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.Config{Title: "Test", Controls: controls, Publisher: publisher}))

		errc := runAsync(ctx, h)
		require.Eventually(t, func() bool { return controls.State() == dmgpacer.Running }, time.Second, time.Millisecond)

		for i := 0; i < 2; i++ {
			publisher.Publish(blankCanvas{})
		}
		select {
		case <-errc:
			t.Fatal("should not finish before reaching max frames")
		default:
		}

		publisher.Publish(blankCanvas{})
		require.NoError(t, <-errc)
		assert.Equal(t, []string{"run", "pause"}, controls.Calls())
		assert.Equal(t, dmgpacer.Paused, controls.State())

		assert.NoError(t, h.Cleanup())
	})

	t.Run("snapshots", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		dir := t.TempDir()
		cfg, err := headless.CreateSnapshotConfig(2, dir, "/roms/tetris.gb")
		require.NoError(t, err)
		assert.Equal(t, "tetris", cfg.ROMName)

		controls := backendtest.NewControls(dmgpacer.Ready)
		publisher := video.NewPublisher()
		h := headless.New(5, cfg)
		require.NoError(t, h.Init(backend.Config{Controls: controls, Publisher: publisher}))

		errc := runAsync(ctx, h)
		for i := 0; i < 5; i++ {
			publisher.Publish(blankCanvas{})
		}
		require.NoError(t, <-errc)

		// every second frame plus the final one
		snapshots := h.Snapshots()
		require.Len(t, snapshots, 3)
		for _, path := range snapshots {
			assert.Equal(t, dir, filepath.Dir(path))
		}
		// written off the publishing goroutine, but still in frame order
		assert.Contains(t, filepath.Base(snapshots[0]), "tetris_frame_2_")
		assert.Contains(t, filepath.Base(snapshots[1]), "tetris_frame_4_")
		assert.Contains(t, filepath.Base(snapshots[2]), "tetris_frame_5_")
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		controls := backendtest.NewControls(dmgpacer.Ready)
		h := headless.New(100, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.Config{Controls: controls, Publisher: video.NewPublisher()}))

		errc := runAsync(ctx, h)
		cancel()
		assert.ErrorIs(t, <-errc, context.Canceled)
	})

	t.Run("invalid config", func(t *testing.T) {
		assert.Error(t, headless.New(1, headless.SnapshotConfig{}).Init(backend.Config{}))
		assert.Error(t, headless.New(0, headless.SnapshotConfig{}).Init(backend.Config{
			Controls:  backendtest.NewControls(dmgpacer.Ready),
			Publisher: video.NewPublisher(),
		}))
		assert.Error(t, headless.New(10, headless.SnapshotConfig{}).Init(backend.Config{
			Paused:    true,
			Controls:  backendtest.NewControls(dmgpacer.Ready),
			Publisher: video.NewPublisher(),
		}), "a paused headless run could never finish")
	})
}

// faultyEmulator consumes 10000 cycles per step and fails on step failAt.
type faultyEmulator struct {
	steps  int
	failAt int
}

func (e *faultyEmulator) Step() (int, error) {
	e.steps++
	if e.steps >= e.failAt {
		return 0, errIllegalOpcode
	}
	return 10000, nil
}

func (e *faultyEmulator) CanvasBuffer([]byte) {}
func (e *faultyEmulator) SetJoypad(joypad.State) {}
func (e *faultyEmulator) Free() {}

var errIllegalOpcode = errors.New("illegal opcode")

func TestHeadlessBackend_EmulationFault(t *testing.T) {
	t.Run("scripted controls", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		controls := backendtest.NewControls(dmgpacer.Ready)
		publisher := video.NewPublisher()
		h := headless.New(10, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.Config{Controls: controls, Publisher: publisher}))

		errc := runAsync(ctx, h)
		require.Eventually(t, func() bool { return controls.State() == dmgpacer.Running }, time.Second, time.Millisecond)
		publisher.Publish(blankCanvas{})
		publisher.Publish(blankCanvas{})
		controls.Halt(errIllegalOpcode)

		err := <-errc
		require.Error(t, err)
		assert.ErrorIs(t, err, errIllegalOpcode)
		assert.Contains(t, err.Error(), "after 2 of 10 frames")
		assert.NoError(t, h.Cleanup())
	})

	t.Run("real controller", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		factory := func(bios, rom []byte) (dmgpacer.Emulator, error) {
			return &faultyEmulator{failAt: 20}, nil
		}
		controller := dmgpacer.NewController(factory,
			dmgpacer.WithFramePeriod(time.Millisecond),
			dmgpacer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		defer controller.Close()
		require.NoError(t, controller.Initialize(ctx, nil, nil))

		h := headless.New(10, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.Config{
			Controls:  controller,
			Router:    controller.Router(),
			Publisher: controller.Publisher(),
		}))
		defer h.Cleanup()

		err := h.Run(ctx)
		require.Error(t, err)
		require.NotErrorIs(t, err, context.DeadlineExceeded, "Run must return on the fault, not on the deadline")

		var fault *dmgpacer.EmulationFault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, uint64(2), fault.Frame)
		assert.ErrorIs(t, err, errIllegalOpcode)
		assert.Equal(t, dmgpacer.Paused, controller.State())
	})
}

func TestCreateSnapshotConfig_Disabled(t *testing.T) {
	cfg, err := headless.CreateSnapshotConfig(0, "", "rom.gb")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Directory)
}

func TestHeadlessImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*headless.Backend)(nil)
}
