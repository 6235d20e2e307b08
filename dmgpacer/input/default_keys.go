package input

import "github.com/valerio/go-dmgpacer/dmgpacer/input/action"

// DefaultKeyMap provides default key mappings for run controls.
// Keys used by the joypad (see KeyNames) are deliberately absent.
var DefaultKeyMap = map[string]action.Action{
	"p":      action.EmulatorRunToggle,
	"f":      action.EmulatorStepFrame,
	"o":      action.EmulatorStepFrame,
	"n":      action.EmulatorStepInstruction,
	"i":      action.EmulatorStepInstruction,
	"r":      action.EmulatorReset,
	"F12":    action.EmulatorSnapshot,
	"F10":    action.EmulatorDebugToggle,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,

	"+": action.DebugLogLevelIncrease,
	"=": action.DebugLogLevelIncrease,
	"-": action.DebugLogLevelDecrease,
	"_": action.DebugLogLevelDecrease,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
