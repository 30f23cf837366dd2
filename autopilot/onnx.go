package autopilot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/session"
	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names expected in the policy model.
const (
	InputName  = "input"
	OutputName = "policy"
	PolicySize = 4
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime loads the shared library once per process. ORT_SHARED_LIBRARY_PATH
// wins; otherwise a libonnxruntime.so in the working directory is used if present.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else if runtime.GOOS == "linux" {
			cwd, _ := os.Getwd()
			for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// OnnxPilot scores the four directions with a policy network. The model takes
// a [1, Planes, Height, Width] float32 input and returns [1, 4] logits in
// game.Directions order.
type OnnxPilot struct {
	session  *ort.DynamicAdvancedSession
	log      *slog.Logger
	fallback Pilot

	// mu serializes Run; the session is not shared between goroutines.
	mu sync.Mutex
}

func NewOnnxPilot(modelPath string, logger *slog.Logger) (*OnnxPilot, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("policy model: %w", err)
	}
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	// One board per tick; a single thread keeps the game loop responsive.
	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, err
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, err
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath, []string{InputName}, []string{OutputName}, options)
	if err != nil {
		return nil, fmt.Errorf("load policy model %s: %w", modelPath, err)
	}
	logger.Info("policy model loaded", "path", modelPath)
	return &OnnxPilot{session: sess, log: logger, fallback: Greedy{}}, nil
}

func (p *OnnxPilot) Close() error {
	return p.session.Destroy()
}

// Predict returns the raw policy logits for snap.
func (p *OnnxPilot) Predict(snap session.Snapshot) ([]float32, error) {
	g := snap.Grid
	input, err := ort.NewTensor(ort.NewShape(1, Planes, int64(g.Height), int64(g.Width)), Encode(snap))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	policy, err := ort.NewEmptyTensor[float32](ort.NewShape(1, PolicySize))
	if err != nil {
		return nil, fmt.Errorf("policy tensor: %w", err)
	}
	defer policy.Destroy()

	p.mu.Lock()
	err = p.session.Run([]ort.Value{input}, []ort.Value{policy})
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run policy: %w", err)
	}
	out := make([]float32, PolicySize)
	copy(out, policy.GetData())
	return out, nil
}

func (p *OnnxPilot) Choose(snap session.Snapshot) (game.Direction, bool) {
	if len(snap.Snake) == 0 {
		return 0, false
	}
	logits, err := p.Predict(snap)
	if err != nil {
		p.log.Warn("policy inference failed, using fallback", "error", err)
		return p.fallback.Choose(snap)
	}
	if d, ok := bestSafe(snap, logits); ok {
		return d, true
	}
	return p.fallback.Choose(snap)
}

// bestSafe picks the highest-scoring direction that does not die this tick.
func bestSafe(snap session.Snapshot, logits []float32) (game.Direction, bool) {
	best, found := game.Direction(0), false
	for _, c := range candidates(snap) {
		if !c.safe || int(c.dir) >= len(logits) {
			continue
		}
		if !found || logits[c.dir] > logits[best] {
			best, found = c.dir, true
		}
	}
	return best, found
}
