package main

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/rules"
	"github.com/brensch/snekrush/session"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeMuter struct{ muted bool }

func (f *fakeMuter) SetMuted(m bool) { f.muted = m }
func (f *fakeMuter) Muted() bool     { return f.muted }

func newTestModel(t *testing.T) (*session.Controller, *bridge, model, *fakeMuter) {
	t.Helper()
	c, err := session.New(session.Options{
		Settings: rules.DefaultSettings(),
		Rand:     rand.New(rand.NewSource(1)),
		Bursts:   []time.Duration{0, 0, 0},
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	br := newBridge(256)
	c.AddListener(br)
	mu := &fakeMuter{}
	return c, br, newModel(c, br.ch, mu, "greedy"), mu
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, s string) model {
	t.Helper()
	next, _ := m.Update(key(s))
	return next.(model)
}

// drain applies every queued controller message to the model.
func drain(m model, br *bridge) model {
	for {
		select {
		case msg := <-br.ch:
			next, _ := m.Update(msg)
			m = next.(model)
		default:
			return m
		}
	}
}

func TestModel_Keys(t *testing.T) {
	c, br, m, mu := newTestModel(t)

	if !strings.Contains(m.View(), "press enter to start") {
		t.Fatalf("menu view missing prompt:\n%s", m.View())
	}

	m = press(t, m, "enter")
	if c.State() != session.StateRunning {
		t.Fatalf("state=%v want running", c.State())
	}
	m = press(t, m, "right")
	c.Tick()
	if h := c.Snapshot().Heading; h != game.Right {
		t.Fatalf("heading=%v want right", h)
	}

	m = press(t, m, " ")
	m = drain(m, br)
	if c.State() != session.StatePaused || !strings.Contains(m.View(), "PAUSED") {
		t.Fatalf("space did not pause: state=%v", c.State())
	}
	m = press(t, m, "p")
	if c.State() != session.StateRunning {
		t.Fatalf("p did not resume: state=%v", c.State())
	}

	m = press(t, m, "m")
	if !mu.muted || !strings.Contains(m.View(), "muted") {
		t.Fatalf("m did not mute")
	}

	m = press(t, m, "esc")
	if c.State() != session.StateIdle {
		t.Fatalf("esc state=%v want idle", c.State())
	}

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
	if next.(model).View() != "" {
		t.Fatalf("view after quit should be empty")
	}
}

func TestModel_RendersBoardAndGameOver(t *testing.T) {
	c, br, m, _ := newTestModel(t)
	m = press(t, m, "enter")
	m = drain(m, br)

	view := m.View()
	t.Logf("\n%s", view)
	if !strings.Contains(view, "▓▓") || strings.Count(view, "██") != 2 {
		t.Fatalf("board should show a head and two body cells")
	}
	if !strings.Contains(view, "()") {
		t.Fatalf("board should show food")
	}
	if !strings.Contains(view, "autopilot: greedy") {
		t.Fatalf("autopilot label missing")
	}

	// Steer into the left wall: the snake starts in column 1 heading down.
	c.OnDirection(game.Left)
	c.Tick()
	c.Tick()
	m = drain(m, br)
	if c.State() != session.StateGameOver {
		t.Fatalf("state=%v want game over", c.State())
	}
	if !strings.Contains(m.View(), "GAME OVER (wall)") {
		t.Fatalf("game over banner missing:\n%s", m.View())
	}
}

func TestModel_EventLog(t *testing.T) {
	_, _, m, _ := newTestModel(t)
	for i := 0; i < 8; i++ {
		next, _ := m.Update(eventMsg{session.FoodEaten{Name: "golden", Points: 3}})
		m = next.(model)
	}
	if len(m.recent) != 5 || m.recent[0] != "+3 golden" {
		t.Fatalf("recent=%v", m.recent)
	}
	next, _ := m.Update(eventMsg{session.Celebration{Burst: 2, Of: 3}})
	m = next.(model)
	if m.celebrate != 2 {
		t.Fatalf("celebrate=%d want 2", m.celebrate)
	}
	next, _ = m.Update(eventMsg{session.Started{}})
	m = next.(model)
	if m.celebrate != 0 || len(m.recent) != 0 {
		t.Fatalf("start did not clear: celebrate=%d recent=%v", m.celebrate, m.recent)
	}
}

func TestBridge_NeverBlocks(t *testing.T) {
	br := newBridge(1)
	br.OnEvent(session.Paused{})
	br.OnEvent(session.Resumed{})
	br.OnSnapshot(session.Snapshot{})
	if len(br.ch) != 1 {
		t.Fatalf("queued=%d want 1", len(br.ch))
	}
}
