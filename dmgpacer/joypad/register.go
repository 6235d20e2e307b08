package joypad

const (
	selectDPad    = 0x10
	selectActions = 0x20
	selectMask    = selectDPad | selectActions
)

// Register is the P1/JOYP view of a State as a core exposes it to the CPU.
// Bits 4 and 5 select a half (active low), bits 0-3 read back the selected
// buttons, also active low.
type Register struct {
	state State
	line  uint8
}

// NewRegister creates a register with nothing held and no half selected.
func NewRegister() *Register {
	return &Register{line: selectMask}
}

// Load replaces the buttons seen by the register.
func (r *Register) Load(s State) {
	r.state = s
}

// State returns the buttons currently loaded.
func (r *Register) State() State {
	return r.state
}

// Write sets the select lines, only bits 4 and 5 are writable.
func (r *Register) Write(value uint8) {
	r.line = value & selectMask
}

// Read returns the register value for the selected half.
func (r *Register) Read() uint8 {
	low := uint8(0x0F)
	if r.line&selectDPad == 0 {
		low &^= r.state.DPad()
	}
	if r.line&selectActions == 0 {
		low &^= r.state.Actions()
	}
	return 0xC0 | r.line | low
}
