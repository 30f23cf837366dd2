package audio

import (
	"math"
	"sync"

	"github.com/brensch/snekrush/session"
	"github.com/hajimehoshi/oto/v2"
)

// musicVolume scales the background loop under the sound effects.
const musicVolume = 0.35

var _ session.Music = (*OtoPlayer)(nil)

// musicLoop is two bars of a minor-key bass and lead at 120 bpm. Every note
// decays to silence inside its step, so the loop joins without a click.
func musicLoop() frames {
	const step = 0.25
	bass := []float64{110, 0, 110, 130.81, 98, 0, 98, 123.47, 87.31, 0, 87.31, 110, 82.41, 0, 98, 103.83}
	lead := []float64{440, 523.25, 659.25, 523.25, 392, 493.88, 587.33, 493.88, 349.23, 440, 523.25, 440, 329.63, 415.3, 493.88, 659.25}
	n := int(step * SampleRate)
	f := make(frames, len(bass)*n)
	for i := range bass {
		for j := 0; j < n; j++ {
			t := float64(j) / SampleRate
			p := float64(j) / float64(n)
			at := i*n + j
			if freq := bass[i]; freq > 0 {
				env := envelope(p, 0.02, 0.4, 0.4, 0.2)
				f[at] += fmTone(t, freq, 1, 1.5*env) * env * 0.35
			}
			env := envelope(p, 0.01, 0.3, 0.2, 0.3)
			f[at] += math.Sin(2*math.Pi*lead[i]*t) * env * 0.18
		}
	}
	return f
}

// loopReader repeats data forever.
type loopReader struct {
	data []byte
	pos  int
}

func (l *loopReader) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		c := copy(b[n:], l.data[l.pos:])
		n += c
		l.pos = (l.pos + c) % len(l.data)
	}
	return n, nil
}

// music is the background loop state of an OtoPlayer.
type music struct {
	mu     sync.Mutex
	want   bool
	player oto.Player
}

// SetPlaying starts or pauses the background loop. Requests made before the
// device is ready take effect once it is.
func (p *OtoPlayer) SetPlaying(on bool) {
	p.music.mu.Lock()
	p.music.want = on
	p.music.mu.Unlock()
	p.applyMusic()
}

// applyMusic brings the loop in line with the requested and muted state.
func (p *OtoPlayer) applyMusic() {
	select {
	case <-p.ready:
	default:
		return
	}
	m := &p.music
	m.mu.Lock()
	defer m.mu.Unlock()
	play := m.want && !p.muted.Load()
	if m.player == nil {
		if !play {
			return
		}
		m.player = p.ctx.NewPlayer(&loopReader{data: musicLoop().stereo()})
		m.player.SetVolume(p.volume * musicVolume)
	}
	switch {
	case play && !m.player.IsPlaying():
		m.player.Play()
	case !play && m.player.IsPlaying():
		m.player.Pause()
	}
}
