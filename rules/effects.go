// effects.go applies the consequences of eating: points, speed changes,
// palette switches and milestone detection.

package rules

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brensch/snekrush/game"
)

// Speed bounds the tick interval. A shorter interval is a faster snake, so
// SpeedUp subtracts StepUp down to Min and SlowDown adds StepDown up to Max.
type Speed struct {
	Base     time.Duration
	Min      time.Duration
	Max      time.Duration
	StepUp   time.Duration
	StepDown time.Duration
}

func (sp Speed) Validate() error {
	if sp.Min <= 0 {
		return fmt.Errorf("min speed must be > 0, got %s", sp.Min)
	}
	if sp.Min > sp.Base || sp.Base > sp.Max {
		return fmt.Errorf("speeds must satisfy min <= base <= max, got %s/%s/%s", sp.Min, sp.Base, sp.Max)
	}
	if sp.StepUp < 0 || sp.StepDown < 0 {
		return fmt.Errorf("speed steps must be >= 0, got up=%s down=%s", sp.StepUp, sp.StepDown)
	}
	return nil
}

// Clamp keeps d within [Min, Max].
func (sp Speed) Clamp(d time.Duration) time.Duration {
	if d < sp.Min {
		return sp.Min
	}
	if d > sp.Max {
		return sp.Max
	}
	return d
}

// Apply returns the interval after an effect. Effects other than SpeedUp and
// SlowDown leave the interval unchanged.
func (sp Speed) Apply(interval time.Duration, e game.Effect) time.Duration {
	switch e {
	case game.EffectSpeedUp:
		return sp.Clamp(interval - sp.StepUp)
	case game.EffectSlowDown:
		return sp.Clamp(interval + sp.StepDown)
	}
	return interval
}

// ScoreDelta reports what a single consumption changed.
type ScoreDelta struct {
	Type        game.FoodType
	Points      int
	OldScore    int
	NewScore    int
	Effect      game.Effect
	OldInterval time.Duration
	NewInterval time.Duration

	// Milestone is set when NewScore reached a higher multiple of the threshold.
	// At most one milestone is reported per consumption even if several
	// multiples were skipped.
	Milestone      bool
	PaletteChanged bool
	Palette        int
}

// MilestoneCrossed reports whether going from old to new crosses into a higher
// multiple of threshold. A threshold <= 0 disables milestones.
func MilestoneCrossed(old, new, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return new/threshold > old/threshold
}

// MilestoneLevel is the quotient score/threshold, or 0 when milestones are disabled.
func MilestoneLevel(score, threshold int) int {
	if threshold <= 0 {
		return 0
	}
	return score / threshold
}

// ApplyConsumption adds the food's points to the session score and applies its
// effect. Unknown food types score nothing.
func ApplyConsumption(s *Session, settings Settings, ft game.FoodType, rng *rand.Rand) ScoreDelta {
	kind, _ := settings.Foods.Kind(ft)

	d := ScoreDelta{
		Type:        ft,
		Points:      kind.Points,
		OldScore:    s.Score,
		Effect:      kind.Effect,
		OldInterval: s.Interval,
		Palette:     s.Palette,
	}

	// Points are validated non-negative, so the score never decreases.
	if kind.Points > 0 {
		s.Score += kind.Points
	}
	d.NewScore = s.Score

	s.Interval = settings.Speed.Apply(s.Interval, kind.Effect)
	d.NewInterval = s.Interval

	if kind.Effect == game.EffectRainbow {
		next := nextPalette(rng, s.Palette, settings.Palettes)
		d.PaletteChanged = next != s.Palette
		s.Palette = next
		d.Palette = next
	}

	d.Milestone = MilestoneCrossed(d.OldScore, d.NewScore, settings.MilestoneThreshold)
	return d
}

// nextPalette rolls a palette id different from current when more than one exists.
func nextPalette(rng *rand.Rand, current, n int) int {
	if n <= 1 {
		return 0
	}
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	p := intn(n - 1)
	if p >= current {
		p++
	}
	return p
}
