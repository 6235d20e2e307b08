package joypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_SetIsIdempotent(t *testing.T) {
	var s State
	once := s.Set(A, true)
	twice := once.Set(A, true)

	assert.Equal(t, once, twice)
	assert.True(t, twice.Pressed(A))
	assert.False(t, twice.Pressed(B))

	released := twice.Set(A, false).Set(A, false)
	assert.Equal(t, State(0), released)
}

func TestState_Halves(t *testing.T) {
	s := State(0).Set(Right, true).Set(Down, true).Set(A, true).Set(Start, true)

	assert.Equal(t, uint8(0b1001), s.DPad())
	assert.Equal(t, uint8(0b1001), s.Actions())
	assert.Equal(t, "Right+Down+A+Start", s.String())
	assert.Equal(t, "none", State(0).String())
}

func TestRegister_Read(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		write    uint8
		expected uint8
	}{
		{
			name:     "nothing selected reads all released",
			state:    State(0).Set(A, true),
			write:    0x30,
			expected: 0xFF,
		},
		{
			name:     "d-pad selected",
			state:    State(0).Set(Left, true).Set(A, true),
			write:    0x20,
			expected: 0xE0 | 0x0D,
		},
		{
			name:     "actions selected",
			state:    State(0).Set(Left, true).Set(Start, true),
			write:    0x10,
			expected: 0xD0 | 0x07,
		},
		{
			name:     "both selected merge",
			state:    State(0).Set(Right, true).Set(B, true),
			write:    0x00,
			expected: 0xC0 | 0x0C,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegister()
			r.Load(tt.state)
			r.Write(tt.write)
			assert.Equal(t, tt.expected, r.Read(), "got 0x%02X", r.Read())
		})
	}
}
