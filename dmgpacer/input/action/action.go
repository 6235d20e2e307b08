package action

// Action represents run-control actions a backend can request. Joypad
// buttons do not go through actions, they are routed as key codes.
type Action int

const (
	EmulatorRunToggle Action = iota
	EmulatorStepFrame
	EmulatorStepInstruction
	EmulatorReset
	EmulatorSnapshot
	EmulatorDebugToggle
	EmulatorQuit

	DebugLogLevelIncrease
	DebugLogLevelDecrease
)

var descriptions = map[Action]string{
	EmulatorRunToggle:       "Run/Pause",
	EmulatorStepFrame:       "Step frame",
	EmulatorStepInstruction: "Step instruction",
	EmulatorReset:           "Reset",
	EmulatorSnapshot:        "Snapshot",
	EmulatorDebugToggle:     "Toggle status panel",
	EmulatorQuit:            "Quit",
	DebugLogLevelIncrease:   "More logs",
	DebugLogLevelDecrease:   "Fewer logs",
}

func (a Action) String() string {
	if d, ok := descriptions[a]; ok {
		return d
	}
	return "Unknown"
}

// Debounced reports whether repeated triggers of a should be throttled.
// Quit is never throttled.
func (a Action) Debounced() bool {
	return a != EmulatorQuit
}
