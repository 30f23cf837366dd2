package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/rules"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	snaps  []Snapshot
	sounds []string
}

func (r *recorder) OnSnapshot(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Play(name string) {
	r.mu.Lock()
	r.sounds = append(r.sounds, name)
	r.mu.Unlock()
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func (r *recorder) soundCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sounds {
		if s == name {
			n++
		}
	}
	return n
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) find(name string) Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.EventName() == name {
			return e
		}
	}
	return nil
}

type fakeScores struct {
	mu      sync.Mutex
	score   int
	loadErr error
	saveErr error
	saves   []int
}

func (f *fakeScores) Load() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return f.score, nil
}

func (f *fakeScores) Save(score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, score)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.score = score
	return nil
}

func newTestController(t *testing.T, scores HighScores, bursts []time.Duration) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	if bursts == nil {
		bursts = []time.Duration{0, 0, 0}
	}
	c, err := New(Options{
		Settings:   rules.DefaultSettings(),
		HighScores: scores,
		Audio:      rec,
		Listeners:  []Listener{rec},
		Rand:       rand.New(rand.NewSource(1)),
		Bursts:     bursts,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

// setup replaces the running session's snake, heading and food.
func setup(c *Controller, body []game.Point, dir game.Direction, food game.Food, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.Snake = game.NewSnake(body...)
	c.sess.Heading = dir
	c.sess.Staged = dir
	c.sess.Food = food
	c.sess.Score = score
}

func TestController_StartEmitsSnapshot(t *testing.T) {
	c, rec := newTestController(t, nil, nil)
	if c.State() != StateIdle {
		t.Fatalf("state=%v want idle", c.State())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := rec.last()
	if snap.State != StateRunning || snap.Length != 3 || snap.Score != 0 || snap.SessionID == "" {
		t.Fatalf("unexpected start snapshot %+v", snap)
	}
	if snap.Food == nil || snap.Food.Name == "" || snap.Food.Color == "" {
		t.Fatalf("food not resolved in snapshot: %+v", snap.Food)
	}
	if rec.count("started") != 1 {
		t.Fatalf("started events=%d want 1", rec.count("started"))
	}

	// Start while running is a no-op.
	id := snap.SessionID
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Snapshot().SessionID != id {
		t.Fatalf("Start while running replaced the session")
	}
}

func TestController_EatNormalFood(t *testing.T) {
	c, rec := newTestController(t, nil, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	settings := c.Settings()
	normal, _ := settings.Foods.Lookup("normal")
	setup(c,
		[]game.Point{{X: 20, Y: 20}, {X: 20, Y: 40}, {X: 20, Y: 60}},
		game.Down,
		game.Food{Pos: game.Point{X: 20, Y: 80}, Type: normal}, 0)

	interval, running := c.Tick()
	if !running || interval != 100*time.Millisecond {
		t.Fatalf("Tick()=%s,%v", interval, running)
	}
	snap := rec.last()
	if snap.Score != 1 || snap.Length != 4 {
		t.Fatalf("score=%d length=%d want 1 and 4", snap.Score, snap.Length)
	}
	for _, p := range snap.Snake {
		if p == snap.Food.Pos {
			t.Fatalf("new food %v on snake", snap.Food.Pos)
		}
	}
	ev, ok := rec.find("food_eaten").(FoodEaten)
	if !ok || ev.Name != "normal" || ev.Points != 1 || ev.Pos != (game.Point{X: 20, Y: 80}) {
		t.Fatalf("food eaten event %+v", ev)
	}
	if rec.soundCount(SoundEat) != 1 {
		t.Fatalf("eat sounds=%d want 1", rec.soundCount(SoundEat))
	}
	if rec.count("effect") != 0 {
		t.Fatalf("normal food emitted an effect event")
	}
}

func TestController_EffectsAndMilestone(t *testing.T) {
	c, rec := newTestController(t, nil, nil)
	_ = c.Start()
	settings := c.Settings()
	rainbow, _ := settings.Foods.Lookup("rainbow")
	setup(c,
		[]game.Point{{X: 20, Y: 20}, {X: 20, Y: 40}, {X: 20, Y: 60}},
		game.Down,
		game.Food{Pos: game.Point{X: 20, Y: 80}, Type: rainbow}, 15)

	c.Tick()
	if rec.count("effect") != 1 || rec.count("palette_changed") != 1 {
		t.Fatalf("effect=%d palette=%d want 1 and 1", rec.count("effect"), rec.count("palette_changed"))
	}
	m, ok := rec.find("milestone").(Milestone)
	if !ok || m.Score != 25 || m.Level != 1 {
		t.Fatalf("milestone event %+v", m)
	}
	if rec.soundCount(SoundMilestone) != 1 {
		t.Fatalf("milestone sounds=%d want 1", rec.soundCount(SoundMilestone))
	}
	if rec.last().Palette == 0 {
		t.Fatalf("palette did not change")
	}
}

func TestController_WallGameOverNewHighScore(t *testing.T) {
	scores := &fakeScores{score: 5}
	c, rec := newTestController(t, scores, nil)
	_ = c.Start()
	settings := c.Settings()
	edge := (settings.Grid.Width - 1) * settings.Grid.CellSize
	setup(c,
		[]game.Point{{X: edge - 40, Y: 100}, {X: edge - 20, Y: 100}, {X: edge, Y: 100}},
		game.Right,
		game.Food{Pos: game.Point{X: 0, Y: 0}}, 12)

	if _, running := c.Tick(); running {
		t.Fatalf("still running after wall collision")
	}
	over, ok := rec.find("game_over").(GameOver)
	if !ok {
		t.Fatalf("no game over event")
	}
	if over.FinalScore != 12 || over.Length != 3 || !over.IsNewHighScore || over.Reason != rules.DeathWall {
		t.Fatalf("game over %+v", over)
	}
	nh, _ := rec.find("new_high_score").(NewHighScore)
	if nh.Score != 12 || nh.Previous != 5 {
		t.Fatalf("new high score %+v", nh)
	}
	if len(scores.saves) != 1 || scores.saves[0] != 12 {
		t.Fatalf("saves=%v want [12]", scores.saves)
	}
	if rec.count("celebration") != 3 || rec.soundCount(SoundFirework) != 3 {
		t.Fatalf("celebrations=%d fireworks=%d want 3 and 3", rec.count("celebration"), rec.soundCount(SoundFirework))
	}
	if rec.soundCount(SoundDeath) != 1 {
		t.Fatalf("death sounds=%d want 1", rec.soundCount(SoundDeath))
	}
	snap := c.Snapshot()
	if snap.State != StateGameOver || snap.HighScore != 12 || snap.Score != 12 {
		t.Fatalf("snapshot after game over %+v", snap)
	}

	// Game over is reported once.
	for i := 0; i < 3; i++ {
		c.Tick()
	}
	if rec.count("game_over") != 1 {
		t.Fatalf("game over events=%d want 1", rec.count("game_over"))
	}
}

func TestController_GameOverWithoutHighScore(t *testing.T) {
	scores := &fakeScores{score: 50}
	c, rec := newTestController(t, scores, nil)
	_ = c.Start()
	setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 12)

	c.Tick()
	over, _ := rec.find("game_over").(GameOver)
	if over.IsNewHighScore || over.FinalScore != 12 {
		t.Fatalf("game over %+v", over)
	}
	if len(scores.saves) != 0 {
		t.Fatalf("saved %v without a new high score", scores.saves)
	}
	if rec.count("celebration") != 0 || rec.count("new_high_score") != 0 {
		t.Fatalf("celebrated a score below the high score")
	}
}

func TestController_PersistenceFailuresAreNotFatal(t *testing.T) {
	scores := &fakeScores{loadErr: errors.New("disk gone"), saveErr: errors.New("read only")}
	c, rec := newTestController(t, scores, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start with failing store: %v", err)
	}
	if rec.last().HighScore != 0 {
		t.Fatalf("high score=%d want 0 on load failure", rec.last().HighScore)
	}
	setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 3)
	c.Tick()

	over, _ := rec.find("game_over").(GameOver)
	if !over.IsNewHighScore {
		t.Fatalf("expected new high score against a 0 fallback: %+v", over)
	}
	if len(scores.saves) != 1 {
		t.Fatalf("save attempts=%d want 1", len(scores.saves))
	}
}

func TestController_PauseAndDirection(t *testing.T) {
	c, rec := newTestController(t, nil, nil)
	_ = c.Start()
	setup(c, []game.Point{{X: 100, Y: 100}, {X: 120, Y: 100}}, game.Right, game.Food{Pos: game.Point{X: 0, Y: 0}}, 0)

	if c.OnDirection(game.Left) {
		t.Fatalf("reversal accepted")
	}
	c.OnPauseToggle()
	if c.State() != StatePaused || rec.count("paused") != 1 {
		t.Fatalf("state=%v paused events=%d", c.State(), rec.count("paused"))
	}
	before := c.Snapshot()
	if _, running := c.Tick(); running {
		t.Fatalf("tick ran while paused")
	}
	if c.OnDirection(game.Up) {
		t.Fatalf("direction accepted while paused")
	}
	if after := c.Snapshot(); after.Tick != before.Tick {
		t.Fatalf("paused tick advanced %d -> %d", before.Tick, after.Tick)
	}

	c.OnPauseToggle()
	if c.State() != StateRunning || rec.count("resumed") != 1 {
		t.Fatalf("state=%v resumed events=%d", c.State(), rec.count("resumed"))
	}
	if !c.OnDirection(game.Up) {
		t.Fatalf("up rejected while running")
	}
	c.Tick()
	if head := c.Snapshot().Snake[1]; head != (game.Point{X: 120, Y: 80}) {
		t.Fatalf("head=%v want (120,80)", head)
	}
}

func TestController_ResetAndMenu(t *testing.T) {
	c, rec := newTestController(t, nil, nil)
	if err := c.OnReset(); err != nil || c.State() != StateIdle {
		t.Fatalf("reset at menu changed state to %v (err %v)", c.State(), err)
	}
	_ = c.Start()
	first := c.Snapshot().SessionID
	c.Tick()

	if err := c.OnReset(); err != nil {
		t.Fatalf("OnReset: %v", err)
	}
	snap := c.Snapshot()
	if snap.SessionID == first || snap.Tick != 0 || snap.Score != 0 || snap.State != StateRunning {
		t.Fatalf("reset did not start a fresh session: %+v", snap)
	}

	c.OnReturnToMenu()
	snap = rec.last()
	if snap.State != StateIdle || len(snap.Snake) != 0 || snap.Food != nil {
		t.Fatalf("menu snapshot %+v", snap)
	}
	if _, running := c.Tick(); running {
		t.Fatalf("tick ran at the menu")
	}
	if rec.count("menu") != 1 {
		t.Fatalf("menu events=%d want 1", rec.count("menu"))
	}
}

func TestController_ListenerMayCallBack(t *testing.T) {
	c, _ := newTestController(t, nil, nil)
	calls := 0
	c.AddListener(ListenerFuncs{Snapshot: func(s Snapshot) {
		if s.State == StateRunning {
			calls++
			c.OnDirection(game.Right)
			_ = c.Snapshot()
		}
	}})

	done := make(chan struct{})
	go func() {
		_ = c.Start()
		c.Tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("listener calling back into the controller deadlocked")
	}
	if calls != 2 {
		t.Fatalf("listener calls=%d want 2", calls)
	}
}

func TestController_ResetCancelsPendingCelebration(t *testing.T) {
	c, rec := newTestController(t, &fakeScores{}, []time.Duration{0, 40 * time.Millisecond, 80 * time.Millisecond})
	_ = c.Start()
	setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 4)
	c.Tick()
	if err := c.OnReset(); err != nil {
		t.Fatalf("OnReset: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := rec.count("celebration"); n != 1 {
		t.Fatalf("celebrations=%d want 1 after reset", n)
	}
}

func TestController_DelayedCelebration(t *testing.T) {
	c, rec := newTestController(t, &fakeScores{}, []time.Duration{0, 20 * time.Millisecond, 40 * time.Millisecond})
	_ = c.Start()
	setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 4)
	c.Tick()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count("celebration") < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("celebrations=%d want 3", rec.count("celebration"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rec.soundCount(SoundFirework) != 3 {
		t.Fatalf("fireworks=%d want 3", rec.soundCount(SoundFirework))
	}
}

func TestRunner_TicksPausesAndStops(t *testing.T) {
	settings := rules.DefaultSettings()
	settings.Speed = rules.Speed{
		Base: 5 * time.Millisecond, Min: time.Millisecond, Max: 10 * time.Millisecond,
		StepUp: time.Millisecond, StepDown: time.Millisecond,
	}
	// A long corridor keeps the snake alive for the whole test.
	settings.Grid = game.Grid{Width: 3, Height: 400, CellSize: 1}
	settings.InitialSnake = []game.Point{{X: 1, Y: 0}, {X: 1, Y: 1}}
	rec := &recorder{}
	c, err := New(Options{Settings: settings, Listeners: []Listener{rec}, Rand: rand.New(rand.NewSource(3))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewRunner(c).Run(ctx) }()

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return c.Snapshot().Tick >= 5 })

	c.OnPauseToggle()
	paused := c.Snapshot().Tick
	time.Sleep(50 * time.Millisecond)
	if got := c.Snapshot().Tick; got != paused {
		t.Fatalf("ticks advanced while paused: %d -> %d", paused, got)
	}

	c.OnPauseToggle()
	waitFor(t, func() bool { return c.Snapshot().Tick >= paused+3 })

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestController_DeliveryFollowsChangeOrder(t *testing.T) {
	c, rec := newTestController(t, &fakeScores{score: 100}, nil)
	_ = c.Start()
	setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 3)

	// Hold the tick's game over delivery while a reset lands from elsewhere.
	blocked := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	c.AddListener(ListenerFuncs{Event: func(e Event) {
		if _, ok := e.(GameOver); ok {
			once.Do(func() {
				close(blocked)
				<-release
			})
		}
	}})

	tickDone := make(chan struct{})
	go func() {
		c.Tick()
		close(tickDone)
	}()
	<-blocked

	resetDone := make(chan error, 1)
	go func() { resetDone <- c.OnReset() }()
	select {
	case err := <-resetDone:
		if err != nil {
			t.Fatalf("OnReset: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnReset waited on a blocked listener")
	}
	close(release)
	<-tickDone

	current := c.Snapshot()
	last := rec.last()
	if last.SessionID != current.SessionID || last.State != StateRunning {
		t.Fatalf("last delivered snapshot state=%v session=%q, controller state=%v session=%q",
			last.State, last.SessionID, current.State, current.SessionID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	overAt, startedAt := -1, -1
	for i, e := range rec.events {
		switch e.(type) {
		case GameOver:
			overAt = i
		case Started:
			startedAt = i
		}
	}
	if overAt < 0 || startedAt < overAt {
		t.Fatalf("game over at %d, last start at %d; start must follow", overAt, startedAt)
	}
	var states []State
	for _, s := range rec.snaps {
		states = append(states, s.State)
	}
	n := len(states)
	if n < 2 || states[n-2] != StateGameOver || states[n-1] != StateRunning {
		t.Fatalf("snapshot states=%v want game over then running at the end", states)
	}
}

func TestController_BoardFullSnapshotHasNoFood(t *testing.T) {
	settings := rules.DefaultSettings()
	settings.Grid = game.Grid{Width: 1, Height: 3, CellSize: 10}
	settings.InitialSnake = []game.Point{{X: 0, Y: 0}, {X: 0, Y: 10}}
	settings.InitialDirection = game.Down
	rec := &recorder{}
	c, err := New(Options{Settings: settings, Listeners: []Listener{rec}, Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = c.Start()
	if f := c.Snapshot().Food; f == nil || f.Pos != (game.Point{X: 0, Y: 20}) {
		t.Fatalf("food=%+v want the last free cell", f)
	}

	c.Tick()
	snap := rec.last()
	if snap.State != StateGameOver || snap.Reason != rules.DeathBoardFull {
		t.Fatalf("state=%v reason=%q want board full", snap.State, snap.Reason)
	}
	if snap.Food != nil {
		t.Fatalf("food %+v shown under the head on a full board", snap.Food)
	}
	if snap.Length != 3 {
		t.Fatalf("length=%d want 3", snap.Length)
	}
}

type musicLog struct {
	mu    sync.Mutex
	calls []bool
}

func (m *musicLog) SetPlaying(on bool) {
	m.mu.Lock()
	m.calls = append(m.calls, on)
	m.mu.Unlock()
}

func (m *musicLog) get() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.calls...)
}

func TestController_MusicModes(t *testing.T) {
	tests := []struct {
		mode MusicMode
		want []bool
	}{
		{mode: MusicAlways, want: []bool{true, true, false}},
		{mode: MusicConditional, want: []bool{true, false, true, false}},
		{mode: MusicOff, want: []bool{false}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			music := &musicLog{}
			c, err := New(Options{
				Settings:   rules.DefaultSettings(),
				HighScores: &fakeScores{score: 100},
				Music:      music,
				MusicMode:  tt.mode,
				Rand:       rand.New(rand.NewSource(1)),
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_ = c.Start()
			setup(c, []game.Point{{X: 0, Y: 40}, {X: 0, Y: 20}, {X: 0, Y: 0}}, game.Up, game.Food{Pos: game.Point{X: 200, Y: 200}}, 1)
			c.Tick()
			_ = c.OnReset()
			c.OnReturnToMenu()

			got := music.get()
			if len(got) != len(tt.want) {
				t.Fatalf("music calls=%v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("music calls=%v want %v", got, tt.want)
				}
			}
		})
	}

	if _, err := New(Options{Settings: rules.DefaultSettings(), MusicMode: "loud"}); err == nil {
		t.Fatalf("unknown music mode accepted")
	}
}

// corridorController runs a snake down a long single lane at the given speed.
func corridorController(t *testing.T, interval time.Duration) (*Controller, *recorder) {
	t.Helper()
	settings := rules.DefaultSettings()
	settings.Speed = rules.Speed{
		Base: interval, Min: interval / 2, Max: interval * 2,
		StepUp: time.Millisecond, StepDown: time.Millisecond,
	}
	settings.Grid = game.Grid{Width: 3, Height: 400, CellSize: 1}
	settings.InitialSnake = []game.Point{{X: 1, Y: 0}, {X: 1, Y: 1}}
	rec := &recorder{}
	c, err := New(Options{Settings: settings, Listeners: []Listener{rec}, Rand: rand.New(rand.NewSource(3))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

func TestRunner_ResetRestartsTheClock(t *testing.T) {
	const interval = 300 * time.Millisecond
	c, _ := corridorController(t, interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewRunner(c).Run(ctx)

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The first timer is armed for the old session; reset halfway through it.
	time.Sleep(interval / 2)
	if err := c.OnReset(); err != nil {
		t.Fatalf("OnReset: %v", err)
	}
	resetAt := time.Now()
	id := c.Snapshot().SessionID

	// The old session's timer would have fired by now.
	time.Sleep(interval * 2 / 3)
	if snap := c.Snapshot(); snap.SessionID != id || snap.Tick != 0 {
		t.Fatalf("new session ticked early: session=%q tick=%d", snap.SessionID, snap.Tick)
	}

	waitFor(t, func() bool { return c.Snapshot().Tick >= 1 })
	if elapsed := time.Since(resetAt); elapsed < interval-20*time.Millisecond {
		t.Fatalf("first tick after %v, want a full interval of %v", elapsed, interval)
	}

	// Two overlapping schedules would tick twice per interval.
	time.Sleep(time.Until(resetAt.Add(interval*2 + interval/3)))
	if tick := c.Snapshot().Tick; tick > 2 {
		t.Fatalf("tick=%d after two intervals, want at most 2", tick)
	}
}

func TestRunner_MenuStopsTicks(t *testing.T) {
	c, rec := corridorController(t, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewRunner(c).Run(ctx)

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return c.Snapshot().Tick >= 3 })
	c.OnReturnToMenu()
	// A tick in flight on the runner may deliver the menu snapshot for us.
	waitFor(t, func() bool { return rec.last().State == StateIdle })

	rec.mu.Lock()
	delivered := len(rec.snaps)
	rec.mu.Unlock()
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	after := len(rec.snaps)
	rec.mu.Unlock()
	if after != delivered {
		t.Fatalf("snapshots after menu: %d -> %d", delivered, after)
	}
}
