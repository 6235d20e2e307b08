package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/backendtest"
	"github.com/valerio/go-dmgpacer/dmgpacer/input/action"
)

func TestDispatch(t *testing.T) {
	tests := []struct {
		name          string
		state         dmgpacer.State
		action        action.Action
		expectCalls   []string
		expectState   dmgpacer.State
		expectHandled bool
	}{
		{"toggle from ready runs", dmgpacer.Ready, action.EmulatorRunToggle, []string{"run"}, dmgpacer.Running, true},
		{"toggle from paused runs", dmgpacer.Paused, action.EmulatorRunToggle, []string{"run"}, dmgpacer.Running, true},
		{"toggle while running pauses", dmgpacer.Running, action.EmulatorRunToggle, []string{"pause"}, dmgpacer.Paused, true},
		{"step", dmgpacer.Paused, action.EmulatorStepInstruction, []string{"step"}, dmgpacer.Paused, true},
		{"step frame", dmgpacer.Paused, action.EmulatorStepFrame, []string{"stepFrame"}, dmgpacer.Paused, true},
		{"reset", dmgpacer.Running, action.EmulatorReset, []string{"reset"}, dmgpacer.Ready, true},
		{"snapshot is not a controller action", dmgpacer.Running, action.EmulatorSnapshot, nil, dmgpacer.Running, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls := backendtest.NewControls(tt.state)
			handled, err := backend.Dispatch(context.Background(), controls, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.expectHandled, handled)
			assert.Equal(t, tt.expectCalls, controls.Calls())
			assert.Equal(t, tt.expectState, controls.State())
		})
	}
}

func TestDispatch_WrapsErrors(t *testing.T) {
	controls := backendtest.NewControls(dmgpacer.Paused)
	controls.Err = dmgpacer.ErrHalted

	handled, err := backend.Dispatch(context.Background(), controls, action.EmulatorRunToggle)
	assert.True(t, handled)
	assert.ErrorIs(t, err, dmgpacer.ErrHalted)
	assert.Contains(t, err.Error(), "Run/Pause")
}

func TestStart(t *testing.T) {
	controls := backendtest.NewControls(dmgpacer.Ready)
	require.NoError(t, backend.Start(context.Background(), backend.Config{Controls: controls, Paused: true}))
	assert.Empty(t, controls.Calls())

	require.NoError(t, backend.Start(context.Background(), backend.Config{Controls: controls}))
	assert.Equal(t, dmgpacer.Running, controls.State())
}
