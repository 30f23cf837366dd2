// Package session drives one snake game: lifecycle state, input latching,
// tick scheduling and fan-out of snapshots, events and sounds.
package session

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/rules"
	"github.com/google/uuid"
)

// DefaultBursts are the offsets of the three new high score bursts.
var DefaultBursts = []time.Duration{0, 1800 * time.Millisecond, 4900 * time.Millisecond}

type Options struct {
	Settings   rules.Settings
	HighScores HighScores
	Audio      Audio
	Music      Music
	// MusicMode decides when Music plays. Empty means MusicAlways.
	MusicMode  MusicMode
	Listeners  []Listener
	Logger     *slog.Logger
	Rand       *rand.Rand
	// Bursts overrides DefaultBursts. Each entry is the offset from game over
	// at which one Celebration event and one firework sound are emitted.
	Bursts []time.Duration
}

// Controller owns the current session. All methods are safe for concurrent use.
type Controller struct {
	settings rules.Settings
	scores   HighScores
	audio    Audio
	music    Music
	mode     MusicMode
	log      *slog.Logger
	rng      *rand.Rand
	bursts   []time.Duration

	// wake tells the runner to re-read the schedule.
	wake chan struct{}

	mu        sync.Mutex
	listeners []Listener
	state     State
	sess      *rules.Session
	id        string
	highScore int
	// epoch increments whenever the session is replaced or discarded.
	epoch uint64
	// queue holds deliveries in the order their changes were made. Only the
	// goroutine that set draining dispatches from it.
	queue    []pending
	draining bool
}

// pending collects everything to deliver once the lock is released.
type pending struct {
	events []Event
	sounds []string
	music  *bool
	snap   *Snapshot
	bursts []burst
}

type burst struct {
	epoch uint64
	ev    Celebration
}

func New(opts Options) (*Controller, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	c := &Controller{
		settings:  opts.Settings,
		scores:    opts.HighScores,
		audio:     opts.Audio,
		music:     opts.Music,
		mode:      opts.MusicMode,
		log:       opts.Logger,
		rng:       opts.Rand,
		bursts:    opts.Bursts,
		listeners: append([]Listener(nil), opts.Listeners...),
		wake:      make(chan struct{}, 1),
	}
	if c.scores == nil {
		c.scores = &memoryScores{}
	}
	if c.audio == nil {
		c.audio = nopAudio{}
	}
	if c.music == nil {
		c.music = nopMusic{}
	}
	if c.mode == "" {
		c.mode = MusicAlways
	}
	if !c.mode.valid() {
		return nil, fmt.Errorf("unknown music mode %q", c.mode)
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.bursts == nil {
		c.bursts = DefaultBursts
	}
	c.highScore = c.loadHighScore()
	return c, nil
}

func (c *Controller) Settings() rules.Settings { return c.settings }

// AddListener registers l for all subsequent snapshots and events.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return buildSnapshot(c.id, c.state, c.settings, c.sess, c.highScore)
}

// Start begins a new game from the menu or after game over. It does nothing
// while a game is running or paused.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state == StateRunning || c.state == StatePaused {
		c.mu.Unlock()
		return nil
	}
	var p pending
	err := c.beginLocked(&p)
	c.enqueueLocked(p)
	c.mu.Unlock()
	c.drain()
	return err
}

// OnReset replaces the current game with a fresh one. Ignored at the menu.
func (c *Controller) OnReset() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	var p pending
	err := c.beginLocked(&p)
	c.enqueueLocked(p)
	c.mu.Unlock()
	c.drain()
	return err
}

// OnDirection stages d for the next tick. Only honored while running;
// reversals of the current heading are ignored.
func (c *Controller) OnDirection(d game.Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	return c.sess.Stage(d)
}

// OnPauseToggle switches between running and paused.
func (c *Controller) OnPauseToggle() {
	c.mu.Lock()
	var p pending
	switch c.state {
	case StateRunning:
		c.state = StatePaused
		p.events = append(p.events, Paused{})
	case StatePaused:
		c.state = StateRunning
		p.events = append(p.events, Resumed{})
	default:
		c.mu.Unlock()
		return
	}
	c.snapshotLocked(&p)
	c.enqueueLocked(p)
	c.mu.Unlock()
	c.signal()
	c.drain()
}

// OnReturnToMenu discards the session and stops scheduling.
func (c *Controller) OnReturnToMenu() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.sess = nil
	c.id = ""
	c.epoch++
	var p pending
	p.events = append(p.events, ReturnedToMenu{})
	p.music = musicState(false)
	c.snapshotLocked(&p)
	c.enqueueLocked(p)
	c.mu.Unlock()
	c.signal()
	c.drain()
}

// Tick advances the running game by one step. It returns the interval until
// the next tick and whether the game is still running.
func (c *Controller) Tick() (time.Duration, bool) {
	c.mu.Lock()
	return c.tickLocked()
}

// tickEpoch ticks only if the session has not been replaced since epoch.
func (c *Controller) tickEpoch(epoch uint64) (time.Duration, bool) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return 0, false
	}
	return c.tickLocked()
}

// tickLocked must be called with mu held and releases it.
func (c *Controller) tickLocked() (time.Duration, bool) {
	if c.state != StateRunning {
		c.mu.Unlock()
		return 0, false
	}

	var p pending
	out := rules.Step(c.sess, c.settings, c.rng)
	if out.Ate {
		c.consumedLocked(&p, out)
	}
	if out.Died {
		c.gameOverLocked(&p, out.Reason)
	}
	c.snapshotLocked(&p)
	interval, running := c.sess.Interval, c.state == StateRunning
	c.enqueueLocked(p)
	c.mu.Unlock()

	c.drain()
	return interval, running
}

// schedule reports what the runner should wait for next.
func (c *Controller) schedule() (time.Duration, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return 0, c.epoch, false
	}
	return c.sess.Interval, c.epoch, true
}

func musicState(on bool) *bool { return &on }

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) loadHighScore() int {
	score, err := c.scores.Load()
	if err != nil {
		c.log.Warn("failed to load high score, using 0", "error", err)
		return 0
	}
	return score
}

func (c *Controller) beginLocked(p *pending) error {
	sess, err := rules.NewSession(c.settings, c.rng)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	c.highScore = c.loadHighScore()
	c.sess = sess
	c.id = uuid.NewString()
	c.state = StateRunning
	c.epoch++
	c.log.Info("game started", "session", c.id, "high_score", c.highScore)

	p.events = append(p.events, Started{SessionID: c.id, HighScore: c.highScore})
	if c.mode != MusicOff {
		p.music = musicState(true)
	}
	c.snapshotLocked(p)
	c.signal()
	return nil
}

func (c *Controller) consumedLocked(p *pending, out rules.Outcome) {
	d := out.Delta
	kind, _ := c.settings.Foods.Kind(d.Type)
	p.events = append(p.events, FoodEaten{
		Type:   d.Type,
		Name:   kind.Name,
		Pos:    out.Eaten.Pos,
		Points: d.Points,
		Score:  d.NewScore,
	})
	p.sounds = append(p.sounds, SoundEat)

	if d.Effect != game.EffectNone {
		p.events = append(p.events, EffectTriggered{Effect: d.Effect, IntervalMs: d.NewInterval.Milliseconds()})
	}
	if d.PaletteChanged {
		p.events = append(p.events, PaletteChanged{Palette: d.Palette})
	}
	if d.Milestone {
		p.events = append(p.events, Milestone{
			Score: d.NewScore,
			Level: rules.MilestoneLevel(d.NewScore, c.settings.MilestoneThreshold),
		})
		p.sounds = append(p.sounds, SoundMilestone)
	}
}

func (c *Controller) gameOverLocked(p *pending, reason rules.DeathReason) {
	c.state = StateGameOver
	final := c.sess.Score
	previous := c.highScore
	isNew := final > previous

	if isNew {
		c.highScore = final
		if err := c.scores.Save(final); err != nil {
			c.log.Error("failed to save high score", "session", c.id, "score", final, "error", err)
		}
	}
	c.log.Info("game over",
		"session", c.id,
		"score", final,
		"length", c.sess.Snake.Len(),
		"reason", string(reason),
		"new_high_score", isNew,
		"ticks", c.sess.Ticks,
	)

	p.events = append(p.events, GameOver{
		FinalScore:     final,
		Length:         c.sess.Snake.Len(),
		IsNewHighScore: isNew,
		Reason:         reason,
	})
	p.sounds = append(p.sounds, SoundDeath)
	if c.mode == MusicConditional {
		p.music = musicState(false)
	}
	if !isNew {
		return
	}
	p.events = append(p.events, NewHighScore{Score: final, Previous: previous})
	for i, delay := range c.bursts {
		p.bursts = append(p.bursts, burst{
			epoch: c.epoch,
			ev:    Celebration{Burst: i + 1, Of: len(c.bursts), Delay: delay},
		})
	}
}

func (c *Controller) snapshotLocked(p *pending) {
	snap := buildSnapshot(c.id, c.state, c.settings, c.sess, c.highScore)
	p.snap = &snap
}

// enqueueLocked queues p behind every earlier change.
func (c *Controller) enqueueLocked(p pending) {
	c.queue = append(c.queue, p)
}

// drain dispatches queued deliveries without the lock held. A caller that
// finds another goroutine already draining returns at once; its deliveries
// go out from that goroutine, after the ones queued before them. Listeners
// calling back into the controller land in the same queue.
func (c *Controller) drain() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.queue) > 0 {
		p := c.queue[0]
		c.queue[0] = pending{}
		c.queue = c.queue[1:]
		listeners := append([]Listener(nil), c.listeners...)
		c.mu.Unlock()
		c.dispatch(p, listeners)
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func (c *Controller) dispatch(p pending, listeners []Listener) {
	if p.music != nil {
		c.music.SetPlaying(*p.music)
	}
	for _, name := range p.sounds {
		c.audio.Play(name)
	}
	for _, ev := range p.events {
		for _, l := range listeners {
			l.OnEvent(ev)
		}
	}
	if p.snap != nil {
		for _, l := range listeners {
			l.OnSnapshot(*p.snap)
		}
	}
	for _, b := range p.bursts {
		if b.ev.Delay <= 0 {
			c.celebrate(b)
			continue
		}
		time.AfterFunc(b.ev.Delay, func() { c.celebrate(b) })
	}
}

// celebrate queues one burst unless the game it belongs to has been replaced.
func (c *Controller) celebrate(b burst) {
	c.mu.Lock()
	if c.epoch != b.epoch {
		c.mu.Unlock()
		return
	}
	c.enqueueLocked(pending{events: []Event{b.ev}, sounds: []string{SoundFirework}})
	c.mu.Unlock()
	c.drain()
}
