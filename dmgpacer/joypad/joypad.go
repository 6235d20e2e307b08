package joypad

import "strings"

// Button represents a key on the Gameboy joypad. The value is the bit
// position of the button inside a State.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// Buttons lists every button in bit order.
var Buttons = [...]Button{Right, Left, Up, Down, A, B, Select, Start}

var buttonNames = [...]string{"Right", "Left", "Up", "Down", "A", "B", "Select", "Start"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return "Unknown"
}

// State is the set of buttons currently held, one bit per Button.
// The low nibble holds the d-pad, the high nibble the action buttons,
// matching the two halves of the P1 register.
type State uint8

// Set returns a copy of s with b pressed or released.
func (s State) Set(b Button, pressed bool) State {
	if pressed {
		return s | 1<<b
	}
	return s &^ (1 << b)
}

// Pressed reports whether b is held in s.
func (s State) Pressed(b Button) bool {
	return s&(1<<b) != 0
}

// DPad returns the d-pad half of the state (Right, Left, Up, Down in bits 0-3).
func (s State) DPad() uint8 {
	return uint8(s) & 0x0F
}

// Actions returns the action-button half (A, B, Select, Start in bits 0-3).
func (s State) Actions() uint8 {
	return uint8(s) >> 4
}

func (s State) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, b := range Buttons {
		if s.Pressed(b) {
			names = append(names, b.String())
		}
	}
	return strings.Join(names, "+")
}
