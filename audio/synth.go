package audio

import (
	"encoding/binary"
	"math"
)

const (
	SampleRate = 44100
	channels   = 2

	// format 0 selects little-endian float32 samples.
	format        = 0
	// bytesPerFrame is two float32 channels.
	bytesPerFrame = 8
)

// frames is mono audio in [-1, 1] at SampleRate.
type frames []float64

func newFrames(seconds float64) frames {
	return make(frames, int(seconds*SampleRate))
}

// stereo encodes mono frames as interleaved little-endian float32 stereo.
func (f frames) stereo() []byte {
	buf := make([]byte, len(f)*bytesPerFrame)
	for i, s := range f {
		v := math.Float32bits(float32(saturate(s)))
		binary.LittleEndian.PutUint32(buf[i*bytesPerFrame:], v)
		binary.LittleEndian.PutUint32(buf[i*bytesPerFrame+4:], v)
	}
	return buf
}

// saturate keeps samples inside [-1, 1] with a soft knee.
func saturate(x float64) float64 {
	return math.Tanh(x)
}

// envelope is a linear attack, decay, sustain, release curve over progress
// p in [0, 1]; a, d and r are fractions of the sound's length.
func envelope(p, a, d, sustain, r float64) float64 {
	switch {
	case p < a:
		return p / a
	case p < a+d:
		return 1 - (p-a)/d*(1-sustain)
	case p < 1-r:
		return sustain
	case p < 1:
		return sustain * (1 - (p-(1-r))/r)
	}
	return 0
}

// fmTone is a two-operator FM sample.
func fmTone(t, freq, ratio, depth float64) float64 {
	return math.Sin(2*math.Pi*freq*t + depth*math.Sin(2*math.Pi*freq*ratio*t))
}

// noise is a deterministic xorshift generator returning samples in [-1, 1].
type noise uint64

func (n *noise) next() float64 {
	x := uint64(*n)
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*n = noise(x)
	return float64(int64(x>>11))/float64(1<<52) - 1
}

// eatSound is a short rising blip.
func eatSound() frames {
	f := newFrames(0.09)
	for i := range f {
		t := float64(i) / SampleRate
		p := float64(i) / float64(len(f))
		env := envelope(p, 0.02, 0.5, 0, 0.1)
		freq := 500 + 700*p
		f[i] = fmTone(t, freq, 2, 3*env)*env*0.45 + math.Sin(2*math.Pi*freq*3*t)*env*0.05
	}
	return f
}

// milestoneSound is a rising major arpeggio.
func milestoneSound() frames {
	notes := []float64{523.25, 659.25, 783.99, 1046.5}
	step := int(0.08 * SampleRate)
	f := make(frames, len(notes)*step+int(0.2*SampleRate))
	for n, freq := range notes {
		start := n * step
		dur := len(f) - start
		for j := 0; j < dur; j++ {
			t := float64(start+j) / SampleRate
			env := envelope(float64(j)/float64(dur), 0.005, 0.6, 0.05, 0.3)
			f[start+j] += fmTone(t, freq, 3, 4*env) * env * 0.25
		}
	}
	return f
}

// deathSound is a falling minor triad.
func deathSound() frames {
	f := newFrames(0.7)
	notes := []struct{ freq, at float64 }{{329.63, 0}, {261.63, 0.12}, {220, 0.24}}
	for _, note := range notes {
		start := int(note.at * SampleRate)
		for i := start; i < len(f); i++ {
			t := float64(i) / SampleRate
			p := float64(i-start) / float64(len(f)-start)
			env := envelope(p, 0.01, 0.25, 0.3, 0.45)
			freq := note.freq * (1 - 0.03*p)
			f[i] += fmTone(t, freq, 2, 2*env)*env*0.3 + math.Sin(math.Pi*freq*t)*env*0.08
		}
	}
	return f
}

// fireworkSound is a thump followed by a crackling noise tail.
func fireworkSound() frames {
	f := newFrames(0.9)
	n := noise(0x9E3779B97F4A7C15)
	for i := range f {
		t := float64(i) / SampleRate
		p := float64(i) / float64(len(f))
		thump := math.Sin(2*math.Pi*(90-60*p)*t) * envelope(p, 0.005, 0.12, 0, 0.01) * 0.6
		tail := n.next() * envelope(p, 0.08, 0.2, 0.35, 0.6) * 0.3
		// Sparse crackle: short clicks gated by a second noise draw.
		if n.next() > 0.985 && p > 0.15 {
			tail += 0.5 * (1 - p)
		}
		f[i] = thump + tail
	}
	return f
}

// Synth renders a named sound, or nil for an unknown name.
func Synth(name string) []byte {
	switch name {
	case "eat":
		return eatSound().stereo()
	case "milestone":
		return milestoneSound().stereo()
	case "death":
		return deathSound().stereo()
	case "firework":
		return fireworkSound().stereo()
	}
	return nil
}
