package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/input/action"
)

// Dispatch applies a run-control action to the controller. The run toggle
// pauses a running emulator and starts it otherwise. Actions that do not
// concern the controller are ignored and reported as not handled.
func Dispatch(ctx context.Context, c Controls, act action.Action) (handled bool, err error) {
	switch act {
	case action.EmulatorRunToggle:
		if c.State() == dmgpacer.Running {
			err = c.Pause(ctx)
		} else {
			err = c.Run(ctx)
		}
	case action.EmulatorStepFrame:
		var cycles int
		cycles, err = c.StepFrame(ctx)
		if err == nil {
			slog.Debug("Stepped frame", "cycles", cycles)
		}
	case action.EmulatorStepInstruction:
		var cycles int
		cycles, err = c.Step(ctx)
		if err == nil {
			slog.Debug("Stepped instruction", "cycles", cycles)
		}
	case action.EmulatorReset:
		err = c.Reset(ctx)
	default:
		return false, nil
	}

	if err != nil {
		return true, fmt.Errorf("%s: %w", act, err)
	}
	return true, nil
}

// Start moves a freshly initialized controller to Running unless cfg asks
// to stay paused.
func Start(ctx context.Context, cfg Config) error {
	if cfg.Paused {
		slog.Info("Starting paused", "state", cfg.Controls.State())
		return nil
	}
	if err := cfg.Controls.Run(ctx); err != nil {
		return fmt.Errorf("failed to start emulation: %w", err)
	}
	return nil
}
