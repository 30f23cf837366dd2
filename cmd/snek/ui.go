package main

import (
	"fmt"
	"strings"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/session"
	"github.com/brensch/snekrush/spectator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snake colors indexed by palette id. Rainbow food switches between them.
var paletteColors = []string{"#00FF66", "#00CCFF", "#FFAA00", "#FF66CC", "#B388FF"}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
	groundStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a"))
	groundStyle2 = lipgloss.NewStyle().Background(lipgloss.Color("#222222"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#BBBBBB"))
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// muter is implemented by audio players that can be silenced at runtime.
type muter interface {
	SetMuted(bool)
	Muted() bool
}

type snapshotMsg session.Snapshot

type eventMsg struct{ event session.Event }

// bridge forwards controller callbacks into the tea program. It never blocks
// the controller; when the UI falls behind, messages are dropped and the next
// snapshot catches it up.
type bridge struct {
	ch chan tea.Msg
}

func newBridge(size int) *bridge { return &bridge{ch: make(chan tea.Msg, size)} }

func (b *bridge) OnSnapshot(s session.Snapshot) { b.push(snapshotMsg(s)) }

func (b *bridge) OnEvent(e session.Event) { b.push(eventMsg{e}) }

func (b *bridge) push(m tea.Msg) {
	select {
	case b.ch <- m:
	default:
	}
}

func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

type model struct {
	ctl     spectator.Controls
	updates <-chan tea.Msg
	muter   muter
	pilot   string

	snap      session.Snapshot
	foods     map[string]lipgloss.Style
	recent    []string
	celebrate int
	quitting  bool
}

func newModel(ctl spectator.Controls, updates <-chan tea.Msg, m muter, pilot string) model {
	foods := map[string]lipgloss.Style{}
	for _, k := range ctl.Settings().Foods {
		foods[k.Name] = lipgloss.NewStyle().Foreground(lipgloss.Color(k.Color))
	}
	return model{
		ctl:     ctl,
		updates: updates,
		muter:   m,
		pilot:   pilot,
		snap:    ctl.Snapshot(),
		foods:   foods,
	}
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, waitForUpdate(m.updates)
	case eventMsg:
		m.noteEvent(msg.event)
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "w", "k":
		m.ctl.OnDirection(game.Up)
	case "down", "s", "j":
		m.ctl.OnDirection(game.Down)
	case "left", "a", "h":
		m.ctl.OnDirection(game.Left)
	case "right", "d", "l":
		m.ctl.OnDirection(game.Right)
	case "p", " ":
		m.ctl.OnPauseToggle()
	case "r":
		if err := m.ctl.OnReset(); err != nil {
			m.note("reset failed: " + err.Error())
		}
	case "enter":
		if err := m.ctl.Start(); err != nil {
			m.note("start failed: " + err.Error())
		}
	case "esc":
		m.ctl.OnReturnToMenu()
	case "m":
		if m.muter != nil {
			m.muter.SetMuted(!m.muter.Muted())
		}
	}
	return m, nil
}

func (m *model) noteEvent(e session.Event) {
	switch e := e.(type) {
	case session.Started:
		m.celebrate = 0
		m.recent = nil
	case session.FoodEaten:
		m.note(fmt.Sprintf("+%d %s", e.Points, e.Name))
	case session.EffectTriggered:
		m.note(fmt.Sprintf("%s: %dms", e.Effect, e.IntervalMs))
	case session.Milestone:
		m.note(fmt.Sprintf("milestone %d!", e.Level))
	case session.NewHighScore:
		m.note(fmt.Sprintf("new high score %d (was %d)", e.Score, e.Previous))
	case session.Celebration:
		m.celebrate = e.Burst
	case session.ReturnedToMenu:
		m.celebrate = 0
	}
}

func (m *model) note(s string) {
	m.recent = append([]string{s}, m.recent...)
	if len(m.recent) > 5 {
		m.recent = m.recent[:5]
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("snekrush"))
	if m.pilot != "" {
		b.WriteString(" " + dimStyle.Render("autopilot: "+m.pilot))
	}
	if m.muter != nil && m.muter.Muted() {
		b.WriteString(" " + dimStyle.Render("muted"))
	}
	b.WriteString("\n")
	b.WriteString(boardStyle.Render(m.renderBoard()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("score %d  best %d  length %d  speed %dms",
		m.snap.Score, m.snap.HighScore, m.snap.Length, m.snap.IntervalMs)))
	b.WriteString("\n")
	if banner := m.banner(); banner != "" {
		b.WriteString(bannerStyle.Render(banner))
		b.WriteString("\n")
	}
	for _, r := range m.recent {
		b.WriteString(dimStyle.Render(r))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("arrows/wasd move  p pause  r reset  enter start  esc menu  m mute  q quit"))
	return b.String()
}

func (m model) banner() string {
	switch m.snap.State {
	case session.StateIdle:
		return "press enter to start"
	case session.StatePaused:
		return "PAUSED"
	case session.StateGameOver:
		s := fmt.Sprintf("GAME OVER (%s) score %d", m.snap.Reason, m.snap.Score)
		if m.celebrate > 0 {
			s += "  NEW HIGH SCORE" + strings.Repeat(" *", m.celebrate)
		}
		return s + "  enter or r to play again"
	}
	return ""
}

func (m model) renderBoard() string {
	g := m.snap.Grid
	if g.Width <= 0 || g.Height <= 0 {
		g = m.ctl.Settings().Grid
	}
	body := make(map[game.Point]bool, len(m.snap.Snake))
	for _, p := range m.snap.Snake {
		body[p] = true
	}
	var head game.Point
	hasHead := len(m.snap.Snake) > 0
	if hasHead {
		head = m.snap.Snake[len(m.snap.Snake)-1]
	}
	snakeColor := lipgloss.Color(paletteColors[m.snap.Palette%len(paletteColors)])
	bodyStyle := lipgloss.NewStyle().Foreground(snakeColor)
	headStyle := bodyStyle.Bold(true)

	rows := make([]string, g.Height)
	for row := 0; row < g.Height; row++ {
		var line strings.Builder
		for col := 0; col < g.Width; col++ {
			p := g.Cell(col, row)
			ground := groundStyle
			if (row+col)%2 == 1 {
				ground = groundStyle2
			}
			switch {
			case hasHead && p == head:
				line.WriteString(headStyle.Inherit(ground).Render("▓▓"))
			case body[p]:
				line.WriteString(bodyStyle.Inherit(ground).Render("██"))
			case m.snap.Food != nil && p == m.snap.Food.Pos:
				style, ok := m.foods[m.snap.Food.Name]
				if !ok {
					style = lipgloss.NewStyle()
				}
				line.WriteString(style.Inherit(ground).Render("()"))
			default:
				line.WriteString(ground.Render("  "))
			}
		}
		rows[row] = line.String()
	}
	return strings.Join(rows, "\n")
}
