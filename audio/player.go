// Package audio plays the game's procedurally generated sound effects.
package audio

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/session"
	"github.com/hajimehoshi/oto/v2"
)

// maxVoices caps simultaneous sounds to avoid clipping.
const maxVoices = 4

// OtoPlayer implements session.Audio on top of an oto context.
type OtoPlayer struct {
	ctx    *oto.Context
	ready  chan struct{}
	log    *slog.Logger
	volume float64

	muted  atomic.Bool
	voices atomic.Int32

	mu    sync.Mutex
	cache map[string][]byte

	music music
}

var _ session.Audio = (*OtoPlayer)(nil)

// NewOtoPlayer opens the default output device. volume is in [0, 1].
func NewOtoPlayer(volume float64, logger *slog.Logger) (*OtoPlayer, error) {
	ctx, ready, err := oto.NewContext(SampleRate, channels, format)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	p := &OtoPlayer{
		ctx:    ctx,
		ready:  ready,
		log:    logger,
		volume: volume,
		cache:  map[string][]byte{},
	}
	go func() {
		<-ready
		p.applyMusic()
	}()
	return p, nil
}

// SetMuted turns sound effects and music off or back on.
func (p *OtoPlayer) SetMuted(m bool) {
	p.muted.Store(m)
	p.applyMusic()
}

func (p *OtoPlayer) Muted() bool { return p.muted.Load() }

// Play starts name in the background. Sounds requested before the device is
// ready, while muted, or beyond the voice limit are dropped.
func (p *OtoPlayer) Play(name string) {
	if p.muted.Load() {
		return
	}
	select {
	case <-p.ready:
	default:
		return
	}
	samples := p.samples(name)
	if samples == nil {
		p.log.Debug("unknown sound", "name", name)
		return
	}
	if p.voices.Add(1) > maxVoices {
		p.voices.Add(-1)
		return
	}
	go func() {
		defer p.voices.Add(-1)
		player := p.ctx.NewPlayer(bytes.NewReader(samples))
		player.SetVolume(p.volume)
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			p.log.Debug("close audio player", "error", err)
		}
	}()
}

func (p *OtoPlayer) samples(name string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.cache[name]; ok {
		return b
	}
	b := Synth(name)
	if b != nil {
		p.cache[name] = b
	}
	return b
}

// Nop discards every sound. It is used when audio is disabled or no device
// can be opened.
type Nop struct{}

func (Nop) Play(string) {}

func (Nop) SetPlaying(bool) {}
