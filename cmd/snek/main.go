// Command snek runs the game in the terminal.
//
// Optional extras hang off the same controller: a websocket spectator server,
// per-session parquet recordings, an autopilot and procedural sound effects.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/brensch/snekrush/audio"
	"github.com/brensch/snekrush/autopilot"
	"github.com/brensch/snekrush/config"
	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/session"
	"github.com/brensch/snekrush/spectator"
	"github.com/brensch/snekrush/store"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath   string
	logFile      string
	logFormat    string
	logLevel     string
	storeKind    string
	dataDir      string
	mode         string
	recordings   string
	spectate     string
	allowControl bool
	pilot        string
	modelPath    string
	mute         bool
	music        string
	volume       float64
	headless     bool
	seed         int64
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", getEnvOrDefault("SNEK_CONFIG", ""), "Path to a JSON config overlay (empty for defaults)")
	flag.StringVar(&o.logFile, "log-file", getEnvOrDefault("SNEK_LOG_FILE", "snek.log"), "Log file path; the terminal is reserved for the game")
	flag.StringVar(&o.logFormat, "log-format", getEnvOrDefault("SNEK_LOG_FORMAT", "pretty"), "Log format: text, json or pretty")
	flag.StringVar(&o.logLevel, "log-level", getEnvOrDefault("SNEK_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.StringVar(&o.storeKind, "store", getEnvOrDefault("SNEK_STORE", "file"), "High score store: file, sqlite or memory")
	flag.StringVar(&o.dataDir, "data-dir", getEnvOrDefault("SNEK_DATA_DIR", ""), "Directory for high scores (default: user config dir)")
	flag.StringVar(&o.mode, "mode", getEnvOrDefault("SNEK_MODE", ""), "Game mode name; each mode keeps its own high score")
	flag.StringVar(&o.recordings, "recordings", getEnvOrDefault("SNEK_RECORDINGS", ""), "Directory for per-session parquet recordings (empty disables)")
	flag.StringVar(&o.spectate, "spectate", getEnvOrDefault("SNEK_SPECTATE", ""), "Address for the spectator server, e.g. :8080 (empty disables)")
	flag.BoolVar(&o.allowControl, "spectator-control", false, "Let spectators steer the snake")
	flag.StringVar(&o.pilot, "autopilot", getEnvOrDefault("SNEK_AUTOPILOT", "none"), "Autopilot: none, greedy or onnx")
	flag.StringVar(&o.modelPath, "model", getEnvOrDefault("SNEK_MODEL", "models/policy.onnx"), "Policy model for -autopilot=onnx")
	flag.BoolVar(&o.mute, "mute", false, "Disable sound effects and music")
	flag.StringVar(&o.music, "music", getEnvOrDefault("SNEK_MUSIC", "always"), "Background music: always, conditional (stops on game over) or off")
	flag.Float64Var(&o.volume, "volume", 0.6, "Sound effect volume in [0, 1]")
	flag.BoolVar(&o.headless, "headless", false, "Run without the terminal UI (useful with -autopilot and -spectate)")
	flag.Int64Var(&o.seed, "seed", getEnvIntOrDefault("SNEK_SEED", 0), "Random seed; 0 uses the config seed or the clock")
	flag.Parse()

	if err := run(o); err != nil {
		log.Fatal(err)
	}
}

func run(o options) error {
	logger, closeLog, err := openLogger(o)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	scores, closeScores, err := openScores(o)
	if err != nil {
		return err
	}
	defer closeScores()

	var player session.Audio = audio.Nop{}
	var music session.Music = audio.Nop{}
	var mute muter
	if !o.mute {
		p, err := audio.NewOtoPlayer(o.volume, logger.With("component", "audio"))
		if err != nil {
			logger.Warn("sound disabled", "error", err)
		} else {
			player, music, mute = p, p, p
		}
	}

	seed := o.seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info("starting", "seed", seed, "store", o.storeKind, "mode", o.mode)

	ctl, err := session.New(session.Options{
		Settings:   settings,
		HighScores: scores,
		Audio:      player,
		Music:      music,
		MusicMode:  session.MusicMode(o.music),
		Logger:     logger.With("component", "session"),
		Rand:       rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		return err
	}

	if o.recordings != "" {
		rec, err := store.NewRecorder(o.recordings, logger.With("component", "recorder"))
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("close recorder", "error", err)
			}
		}()
		ctl.AddListener(rec)
	}

	pilotName, closePilot, err := attachPilot(o, ctl, logger)
	if err != nil {
		return err
	}
	defer closePilot()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := session.NewRunner(ctl).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if o.spectate != "" {
		srv := spectator.New(ctl, spectator.Options{
			Logger:       logger.With("component", "spectator"),
			AllowControl: o.allowControl,
		})
		ctl.AddListener(srv)
		g.Go(func() error { return srv.ListenAndServe(ctx, o.spectate) })
	}

	if o.headless {
		delay := restartDelay(session.DefaultBursts)
		ctl.AddListener(session.ListenerFuncs{Event: restartAfterGameOver(ctx, ctl, delay, logger)})
		if err := ctl.Start(); err != nil {
			return err
		}
	} else {
		br := newBridge(256)
		ctl.AddListener(br)
		prog := tea.NewProgram(newModel(ctl, br.ch, mute, pilotName), tea.WithAltScreen(), tea.WithContext(ctx))
		g.Go(func() error {
			defer cancel()
			_, err := prog.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	logger.Info("stopped", "error", err)
	return err
}

// restartDelay leaves room for every celebration burst before the next game
// replaces the finished one.
func restartDelay(bursts []time.Duration) time.Duration {
	delay := 2 * time.Second
	for _, b := range bursts {
		if b+time.Second > delay {
			delay = b + time.Second
		}
	}
	return delay
}

// restartAfterGameOver keeps a headless demo going by starting a new game
// delay after each game over.
func restartAfterGameOver(ctx context.Context, ctl *session.Controller, delay time.Duration, logger *slog.Logger) func(session.Event) {
	return func(e session.Event) {
		over, ok := e.(session.GameOver)
		if !ok {
			return
		}
		logger.Info("game over", "score", over.FinalScore, "length", over.Length, "reason", over.Reason)
		time.AfterFunc(delay, func() {
			if ctx.Err() != nil {
				return
			}
			if err := ctl.Start(); err != nil {
				logger.Error("restart", "error", err)
			}
		})
	}
}

func openLogger(o options) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if o.logFile != "" {
		f, err := logging.OpenFile(o.logFile)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { f.Close() }
	} else if !o.headless {
		// Writing to stderr would tear the terminal UI.
		w = io.Discard
	}
	logger, err := logging.New(w, o.logFormat, o.logLevel)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

func openScores(o options) (session.HighScores, func(), error) {
	noop := func() {}
	if o.storeKind == "memory" {
		return &store.MemoryHighScores{}, noop, nil
	}
	dir := o.dataDir
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
		dir = d
	}
	switch o.storeKind {
	case "file":
		s, err := store.NewFileHighScores(dir, o.mode)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := store.NewSQLiteHighScores(filepath.Join(dir, "scores.db"), o.mode)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", o.storeKind)
}

func attachPilot(o options, ctl *session.Controller, logger *slog.Logger) (string, func(), error) {
	noop := func() {}
	var p autopilot.Pilot
	switch o.pilot {
	case "", "none":
		return "", noop, nil
	case "greedy":
		p = autopilot.Greedy{}
	case "onnx":
		op, err := autopilot.NewOnnxPilot(o.modelPath, logger.With("component", "autopilot"))
		if err != nil {
			return "", nil, err
		}
		ctl.AddListener(autopilot.NewDriver(op, ctl, logger))
		return "onnx", func() { op.Close() }, nil
	default:
		return "", nil, fmt.Errorf("unknown autopilot %q", o.pilot)
	}
	ctl.AddListener(autopilot.NewDriver(p, ctl, logger))
	return o.pilot, noop, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
