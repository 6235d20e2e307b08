package dmgpacer

// State is the lifecycle state of the run controller.
type State int

const (
	// Uninitialized means no emulator is installed. It is also reported
	// while a reset is building the replacement.
	Uninitialized State = iota
	Ready
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// canStep reports whether the debug controls are available.
func (s State) canStep() bool {
	return s == Ready || s == Paused
}
