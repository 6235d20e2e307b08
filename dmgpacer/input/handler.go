package input

import (
	"sync"
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/input/action"
)

const defaultDebounce = 300 * time.Millisecond

// Handler throttles run-control actions so a held key does not toggle
// pause/run on every auto-repeat.
type Handler struct {
	mu             sync.Mutex
	lastActionTime map[action.Action]time.Time
	debounceDelay  time.Duration
	now            func() time.Time
}

func NewHandler() *Handler {
	return &Handler{
		lastActionTime: make(map[action.Action]time.Time),
		debounceDelay:  defaultDebounce,
		now:            time.Now,
	}
}

// Accept returns true if act should be handled, false if it was debounced.
func (h *Handler) Accept(act action.Action) bool {
	if !act.Debounced() {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if last, ok := h.lastActionTime[act]; ok && now.Sub(last) < h.debounceDelay {
		return false
	}
	h.lastActionTime[act] = now
	return true
}
