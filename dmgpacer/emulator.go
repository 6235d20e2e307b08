package dmgpacer

import "github.com/valerio/go-dmgpacer/dmgpacer/joypad"

// Emulator is the contract the run loop drives. Implementations are only
// ever called from the controller's owner goroutine.
type Emulator interface {
	// Step executes at least one instruction and returns the cycles it took.
	Step() (int, error)

	// CanvasBuffer writes the current frame into buf as 160x144 RGBA,
	// row-major, top to bottom.
	CanvasBuffer(buf []byte)

	// SetJoypad replaces the core's button state.
	SetJoypad(state joypad.State)

	// Free releases the instance. Called exactly once per construction.
	Free()
}

// Factory builds an emulator from a boot ROM and a cartridge image.
type Factory func(bios, rom []byte) (Emulator, error)
