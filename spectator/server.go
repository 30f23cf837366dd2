// Package spectator serves a live view of a game over HTTP and websockets.
//
// Every connected browser receives the current config and snapshot on connect,
// then each snapshot and event as the controller emits them. When control is
// enabled, clients may also steer the snake.
package spectator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/rules"
	"github.com/brensch/snekrush/session"
	"github.com/gorilla/websocket"
)

// Controls is the part of session.Controller the server needs.
type Controls interface {
	Start() error
	OnDirection(game.Direction) bool
	OnPauseToggle()
	OnReset() error
	OnReturnToMenu()
	Snapshot() session.Snapshot
	Settings() rules.Settings
}

type Options struct {
	Logger *slog.Logger
	// AllowControl lets websocket clients send actions.
	AllowControl bool
	// SendBuffer is the per-client queue length. Slow clients drop messages
	// once it is full.
	SendBuffer int
}

// ServerMessage is everything written to a websocket client.
type ServerMessage struct {
	Type     string            `json:"type"`
	Config   *ConfigView       `json:"config,omitempty"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Event    string            `json:"event,omitempty"`
	Data     session.Event     `json:"data,omitempty"`
}

// ClientMessage is read from websocket clients.
type ClientMessage struct {
	Action string `json:"action"`
}

type FoodTypeView struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Points      int     `json:"points"`
	Effect      string  `json:"effect"`
	Probability float64 `json:"probability"`
}

type ConfigView struct {
	Grid               game.Grid      `json:"grid"`
	BaseSpeedMs        int64          `json:"baseSpeed"`
	MinSpeedMs         int64          `json:"minSpeed"`
	MaxSpeedMs         int64          `json:"maxSpeed"`
	MilestoneThreshold int            `json:"milestoneThreshold"`
	Palettes           int            `json:"palettes"`
	FoodTypes          []FoodTypeView `json:"foodTypes"`
	AllowControl       bool           `json:"allowControl"`
}

type Server struct {
	ctl     Controls
	log     *slog.Logger
	control bool
	bufSize int

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan ServerMessage
	// once guards close(send).
	once sync.Once
}

func New(ctl Controls, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.SendBuffer < 2 {
		opts.SendBuffer = 64
	}
	s := &Server{
		ctl:     ctl,
		log:     opts.Logger,
		control: opts.AllowControl,
		bufSize: opts.SendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("spectator listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("spectator server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("spectator shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients is the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) OnSnapshot(snap session.Snapshot) {
	s.broadcast(ServerMessage{Type: "snapshot", Snapshot: &snap})
}

func (s *Server) OnEvent(e session.Event) {
	s.broadcast(ServerMessage{Type: "event", Event: e.EventName(), Data: e})
}

func (s *Server) broadcast(m ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- m:
		default:
			s.log.Debug("dropping message for slow spectator", "type", m.Type)
		}
	}
}

func (s *Server) configView() ConfigView {
	st := s.ctl.Settings()
	cv := ConfigView{
		Grid:               st.Grid,
		BaseSpeedMs:        st.Speed.Base.Milliseconds(),
		MinSpeedMs:         st.Speed.Min.Milliseconds(),
		MaxSpeedMs:         st.Speed.Max.Milliseconds(),
		MilestoneThreshold: st.MilestoneThreshold,
		Palettes:           st.Palettes,
		AllowControl:       s.control,
	}
	for _, k := range st.Foods {
		cv.FoodTypes = append(cv.FoodTypes, FoodTypeView{
			Name:        k.Name,
			Color:       k.Color,
			Points:      k.Points,
			Effect:      k.Effect.String(),
			Probability: k.Probability,
		})
	}
	return cv
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctl.Snapshot())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.configView())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan ServerMessage, s.bufSize)}

	cfg := s.configView()
	snap := s.ctl.Snapshot()
	c.send <- ServerMessage{Type: "config", Config: &cfg}
	c.send <- ServerMessage{Type: "snapshot", Snapshot: &snap}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("spectator connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(c)

	s.remove(c)
	s.log.Info("spectator disconnected", "remote", r.RemoteAddr)
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// writeLoop is the only writer on the connection.
func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for m := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(m); err != nil {
			s.log.Debug("spectator write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) readLoop(c *client) {
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if !s.control {
			continue
		}
		if err := s.apply(msg.Action); err != nil {
			s.log.Debug("ignoring spectator action", "action", msg.Action, "error", err)
		}
	}
}

func (s *Server) apply(action string) error {
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "pause":
		s.ctl.OnPauseToggle()
		return nil
	case "reset":
		return s.ctl.OnReset()
	case "menu":
		s.ctl.OnReturnToMenu()
		return nil
	case "start":
		return s.ctl.Start()
	}
	d, err := game.ParseDirection(action)
	if err != nil {
		return err
	}
	s.ctl.OnDirection(d)
	return nil
}
