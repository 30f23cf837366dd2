package autopilot

import (
	"log/slog"
	"sync"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/session"
)

// Steerer is the input side of session.Controller.
type Steerer interface {
	OnDirection(game.Direction) bool
}

// Driver feeds a Pilot's choices back into a controller. Register it as a
// session.Listener; it decides once per running tick.
type Driver struct {
	pilot Pilot
	ctl   Steerer
	log   *slog.Logger

	mu       sync.Mutex
	lastID   string
	lastTick int
	decided  bool
}

func NewDriver(p Pilot, ctl Steerer, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Driver{pilot: p, ctl: ctl, log: logger}
}

func (d *Driver) OnSnapshot(snap session.Snapshot) {
	if snap.State != session.StateRunning {
		return
	}
	d.mu.Lock()
	if d.decided && snap.SessionID == d.lastID && snap.Tick == d.lastTick {
		d.mu.Unlock()
		return
	}
	d.lastID, d.lastTick, d.decided = snap.SessionID, snap.Tick, true
	d.mu.Unlock()

	dir, ok := d.pilot.Choose(snap)
	if !ok {
		return
	}
	if !d.ctl.OnDirection(dir) {
		d.log.Debug("autopilot move rejected", "direction", dir, "tick", snap.Tick)
	}
}

func (d *Driver) OnEvent(session.Event) {}
