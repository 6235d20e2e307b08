package dmgpacer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrBusy is returned while a reset is rebuilding the emulator.
	ErrBusy = errors.New("emulator is being constructed")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("controller closed")

	// ErrHalted is returned by Run, Step and StepFrame after an emulation
	// fault, until the next Reset.
	ErrHalted = errors.New("emulation halted")
)

// ConstructionError reports a failure of the emulator factory.
type ConstructionError struct {
	Op  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: failed to construct emulator: %v", e.Op, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// EmulationFault records an error raised by the emulator while running a
// frame. Frame is the number of frames completed before the fault.
type EmulationFault struct {
	Frame uint64
	Err   error
}

func (e *EmulationFault) Error() string {
	return fmt.Sprintf("emulation fault after frame %d: %v", e.Frame, e.Err)
}

func (e *EmulationFault) Unwrap() error {
	return e.Err
}

func invalidTransition(op string, s State) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, s)
}

func halted(fault *EmulationFault) error {
	return fmt.Errorf("%w: %w", ErrHalted, fault)
}
