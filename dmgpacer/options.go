package dmgpacer

import (
	"log/slog"
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/input"
	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock frames are scheduled on. Defaults to the wall clock.
func WithClock(clock timing.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRouter sets the input router the controller reads buttons from and
// binds itself to.
func WithRouter(r *input.Router) Option {
	return func(c *Controller) {
		c.router = r
	}
}

// WithPublisher sets where frames are published.
func WithPublisher(p *video.Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithBudget overrides the number of cycles run per frame.
func WithBudget(cycles int) Option {
	return func(c *Controller) {
		c.budget = cycles
	}
}

// WithFramePeriod overrides the wall-clock length of a frame.
func WithFramePeriod(period time.Duration) Option {
	return func(c *Controller) {
		c.period = period
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}
