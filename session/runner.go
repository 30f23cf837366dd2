package session

import (
	"context"
	"time"
)

// Runner drives a Controller from a single goroutine. Each tick re-arms one
// timer with the session's current interval, so speed effects apply from the
// next tick on. While the game is paused, over or at the menu the runner parks
// until the controller wakes it.
type Runner struct {
	c *Controller
}

func NewRunner(c *Controller) *Runner {
	return &Runner{c: c}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		interval, epoch, running := r.c.schedule()
		var fire <-chan time.Time
		if running {
			timer.Reset(interval)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.c.wake:
			timer.Stop()
		case <-fire:
			// A tick armed for a replaced session is dropped by the epoch check.
			r.c.tickEpoch(epoch)
		}
	}
}
