package session

import "sync"

// Listener receives snapshots and events in the order the controller made the
// changes behind them. Callbacks run without the controller lock held, on one
// goroutine at a time, so a listener may call back into the controller; the
// deliveries that causes follow the current one.
type Listener interface {
	OnSnapshot(Snapshot)
	OnEvent(Event)
}

// Audio plays a named sound effect. Play must not block.
type Audio interface {
	Play(name string)
}

// Music switches looping background music on and off. SetPlaying must not
// block and must tolerate repeated calls with the same value.
type Music interface {
	SetPlaying(on bool)
}

// MusicMode selects when background music plays.
type MusicMode string

const (
	// MusicAlways plays from the first game until the menu.
	MusicAlways      MusicMode = "always"
	// MusicConditional stops on game over and restarts with the next game.
	MusicConditional MusicMode = "conditional"
	MusicOff         MusicMode = "off"
)

func (m MusicMode) valid() bool {
	switch m {
	case MusicAlways, MusicConditional, MusicOff:
		return true
	}
	return false
}

// HighScores persists the single best score.
type HighScores interface {
	Load() (int, error)
	Save(score int) error
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Snapshot func(Snapshot)
	Event    func(Event)
}

func (l ListenerFuncs) OnSnapshot(s Snapshot) {
	if l.Snapshot != nil {
		l.Snapshot(s)
	}
}

func (l ListenerFuncs) OnEvent(e Event) {
	if l.Event != nil {
		l.Event(e)
	}
}

type nopAudio struct{}

func (nopAudio) Play(string) {}

type nopMusic struct{}

func (nopMusic) SetPlaying(bool) {}

// memoryScores is the fallback store when none is configured.
type memoryScores struct {
	mu    sync.Mutex
	score int
}

func (m *memoryScores) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

func (m *memoryScores) Save(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
	return nil
}
