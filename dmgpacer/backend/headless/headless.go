package headless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend"
	"github.com/valerio/go-dmgpacer/dmgpacer/debug"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

const (
	progressInterval = 60
	snapshotQueue    = 16
)

// Backend runs the controller for a fixed number of frames without any
// display, saving PNG snapshots along the way.
type Backend struct {
	config         backend.Config
	maxFrames      int
	snapshotConfig SnapshotConfig

	mu          sync.Mutex
	frameCount  int
	done        chan struct{}
	doneOnce    sync.Once
	stopped     chan struct{}
	stopOnce    sync.Once
	unsubscribe func()

	// PNG encoding runs on its own goroutine so snapshot frames do not
	// stall the controller. Jobs are written in frame order.
	jobs       chan snapshotJob
	jobsClosed bool // guarded by mu
	writer     sync.WaitGroup
	finishOnce sync.Once
	savedMu    sync.Mutex
	saved      []string
}

type snapshotJob struct {
	frame  int
	pixels video.ScreenBuffer
}

// SnapshotConfig holds configuration for frame snapshots
type SnapshotConfig struct {
	Enabled   bool
	Interval  int    // Save snapshot every N frames
	Directory string // Directory to save snapshots
	ROMName   string // ROM name for snapshot filenames
}

func New(maxFrames int, snapshotConfig SnapshotConfig) *Backend {
	return &Backend{
		maxFrames:      maxFrames,
		snapshotConfig: snapshotConfig,
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
}

func (h *Backend) Init(config backend.Config) error {
	if config.Controls == nil || config.Publisher == nil {
		return errors.New("headless backend needs controls and a publisher")
	}
	if h.maxFrames <= 0 {
		return fmt.Errorf("invalid frame count %d", h.maxFrames)
	}
	if config.Paused {
		return errors.New("headless mode cannot start paused: nothing would ever run")
	}

	h.config = config
	if h.snapshotConfig.Enabled {
		h.jobs = make(chan snapshotJob, snapshotQueue)
		h.writer.Add(1)
		go h.writeSnapshots()
	}
	config.Controls.OnStateChange(h.onStateChange)
	h.unsubscribe = config.Publisher.Subscribe(h.onFrame)

	slog.Info("Running headless mode",
		"frames", h.maxFrames,
		"snapshot_interval", h.snapshotConfig.Interval,
		"snapshot_dir", h.snapshotConfig.Directory)
	return nil
}

// Run starts the controller and waits until maxFrames frames have been
// published, then pauses it. If the controller stops on its own first,
// typically after an emulation fault, Run returns the fault.
func (h *Backend) Run(ctx context.Context) error {
	defer h.finishSnapshots()

	if err := backend.Start(ctx, h.config); err != nil {
		return err
	}

	select {
	case <-h.done:
	case <-h.stopped:
		select {
		case <-h.done:
		default:
			return h.stopError()
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := h.config.Controls.Pause(ctx); err != nil && !errors.Is(err, dmgpacer.ErrInvalidTransition) {
		return fmt.Errorf("failed to pause after %d frames: %w", h.maxFrames, err)
	}
	h.finishSnapshots()

	stats := h.config.Controls.Stats()
	attrs := []any{
		"frames", stats.Frames,
		"steps", stats.Steps,
		"cycles", stats.Cycles,
		"last_frame_time", stats.LastFrameTime,
	}
	if h.snapshotConfig.Enabled {
		attrs = append(attrs, "png_snapshots_saved_to", h.snapshotConfig.Directory)
	}
	slog.Info("Headless execution completed", attrs...)
	return nil
}

func (h *Backend) Cleanup() error {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.finishSnapshots()
	return nil
}

// Snapshots returns the paths of the snapshots written so far.
func (h *Backend) Snapshots() []string {
	h.savedMu.Lock()
	defer h.savedMu.Unlock()
	return append([]string(nil), h.saved...)
}

func (h *Backend) stopError() error {
	h.mu.Lock()
	completed := h.frameCount
	h.mu.Unlock()

	if fault := h.config.Controls.Fault(); fault != nil {
		return fmt.Errorf("headless run stopped after %d of %d frames: %w", completed, h.maxFrames, fault)
	}
	return fmt.Errorf("headless run stopped after %d of %d frames: controller is %s",
		completed, h.maxFrames, h.config.Controls.State())
}

// onStateChange runs on the controller's loop goroutine.
func (h *Backend) onStateChange(s dmgpacer.State) {
	if s != dmgpacer.Running {
		h.stopOnce.Do(func() { close(h.stopped) })
	}
}

// onFrame runs on the controller's loop goroutine for every published frame.
func (h *Backend) onFrame(f video.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frameCount >= h.maxFrames {
		return
	}
	h.frameCount++

	snapshotDue := h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval == 0
	if snapshotDue {
		h.queueSnapshot(f.Pixels)
	}

	if h.frameCount%progressInterval == 0 {
		slog.Debug("Frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.frameCount == h.maxFrames {
		// final snapshot, unless one was just taken
		if h.snapshotConfig.Enabled && !snapshotDue {
			h.queueSnapshot(f.Pixels)
		}
		h.doneOnce.Do(func() { close(h.done) })
	}
}

// queueSnapshot copies pixels for the writer goroutine. h.mu must be held.
func (h *Backend) queueSnapshot(pixels video.ScreenBuffer) {
	if h.jobs == nil || h.jobsClosed {
		return
	}
	h.jobs <- snapshotJob{frame: h.frameCount, pixels: slices.Clone(pixels)}
}

func (h *Backend) writeSnapshots() {
	defer h.writer.Done()
	for job := range h.jobs {
		baseName := fmt.Sprintf("%s_frame_%d", h.snapshotConfig.ROMName, job.frame)
		path, err := debug.SaveFramePNGToDir(job.pixels, baseName, h.snapshotConfig.Directory)
		if err != nil {
			slog.Error("Failed to save PNG snapshot", "frame", job.frame, "error", err)
			continue
		}
		h.savedMu.Lock()
		h.saved = append(h.saved, path)
		h.savedMu.Unlock()
	}
}

// finishSnapshots stops accepting snapshots and waits for the queued ones
// to be written.
func (h *Backend) finishSnapshots() {
	h.finishOnce.Do(func() {
		h.mu.Lock()
		if h.jobs != nil {
			h.jobsClosed = true
			close(h.jobs)
		}
		h.mu.Unlock()
		h.writer.Wait()
	})
}

// CreateSnapshotConfig creates a snapshot configuration from CLI parameters
func CreateSnapshotConfig(interval int, directory, romPath string) (SnapshotConfig, error) {
	config := SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
	}

	if !config.Enabled {
		return config, nil
	}

	if directory == "" {
		tempDir, err := os.MkdirTemp("", "dmgpacer-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = tempDir
	} else {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = directory
	}

	config.ROMName = filepath.Base(romPath)
	config.ROMName = strings.TrimSuffix(config.ROMName, filepath.Ext(config.ROMName))

	return config, nil
}
