package backend

import (
	"context"

	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/input"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

// Backend is a presentation layer on top of a running controller:
// it shows published frames and turns platform input into key edges and
// run-control actions.
type Backend interface {
	// Init configures the backend. Required before Run.
	Init(config Config) error

	// Run blocks until the user quits, the backend finishes its work, or
	// ctx is cancelled.
	Run(ctx context.Context) error

	// Cleanup resources when shutting down
	Cleanup() error
}

// Controls is the part of *dmgpacer.Controller a backend drives.
type Controls interface {
	Run(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	Step(ctx context.Context) (int, error)
	StepFrame(ctx context.Context) (int, error)
	State() dmgpacer.State
	Stats() dmgpacer.Stats
	Fault() error
	OnStateChange(fn func(dmgpacer.State))
}

var _ Controls = (*dmgpacer.Controller)(nil)

// Config holds configuration for backends
type Config struct {
	Title     string
	ShowDebug bool // Backends may ignore unsupported features
	Paused    bool // Leave the controller in Ready instead of starting it

	Controls  Controls
	Router    *input.Router
	Publisher *video.Publisher
}
