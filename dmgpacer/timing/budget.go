package timing

import "errors"

// ErrNoProgress is returned when a step reports that it consumed no cycles,
// which would otherwise keep the budget loop spinning forever.
var ErrNoProgress = errors.New("emulator step consumed no cycles")

// Stepper executes at least one instruction and reports the cycles it took.
type Stepper interface {
	Step() (int, error)
}

// RunBudget steps s until at least budget cycles have elapsed and returns
// the total. Overshoot from the last step is accepted and not carried over.
// This is the per-frame hot path and must not allocate.
func RunBudget(s Stepper, budget int) (int, error) {
	total := 0
	for total < budget {
		cycles, err := s.Step()
		if err != nil {
			return total, err
		}
		if cycles <= 0 {
			return total, ErrNoProgress
		}
		total += cycles
	}
	return total, nil
}
