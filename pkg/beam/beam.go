// Package beam implements the decoder's three-beam pruning policy with
// adaptive narrowing: state-survival, phone-exit, and word-exit/null-
// propagation margins, each scaled by a shared factor that tightens when a
// frame evaluates more HMMs than the configured cap and relaxes otherwise
package beam

import "github.com/larkhollow/lexara/pkg/types"

// narrowFactor is multiplied into the beam factor once per frame whose
// active-HMM count exceeds MaxHMMPerFrame.
const narrowFactor = 0.9

// minFactor is the floor the beam factor is clamped to; it never narrows
// past 10% of the configured beams.
const minFactor = 0.1

// Config holds the three original (unscaled) beam margins and the per-frame
// active-HMM cap that drives adaptive narrowing.
type Config struct {
	// Beam is the state-level survival margin.
	Beam types.LogProb
	// PBeam is the phone-exit margin.
	PBeam types.LogProb
	// WBeam is the word-exit / null-propagation margin.
	WBeam types.LogProb
	// MaxHMMPerFrame caps the number of HMMs evaluated per frame before the
	// factor narrows; -1 disables the cap (factor always 1.0).
	MaxHMMPerFrame int
}

// Controller tracks the live (scaled) beam values across an utterance. It
// is reset at the start of every utterance via [Controller.Reset].
type Controller struct {
	cfg    Config
	factor float64
}

// NewController returns a Controller over cfg, with the beam factor reset
// to 1.0.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	c.Reset()
	return c
}

// Reset restores the beam factor to 1.0, as done at [Decoder.Start]
func (c *Controller) Reset() {
	c.factor = 1.0
}

// Factor returns the current beam-narrowing factor in [minFactor, 1.0].
func (c *Controller) Factor() float64 { return c.factor }

// Beam, PBeam, WBeam return the three live (scaled) beam margins,
// `original * factor`, truncated toward zero like the reference decoder's
// fixed-point scaling.
func (c *Controller) Beam() types.LogProb  { return scale(c.cfg.Beam, c.factor) }
func (c *Controller) PBeam() types.LogProb { return scale(c.cfg.PBeam, c.factor) }
func (c *Controller) WBeam() types.LogProb { return scale(c.cfg.WBeam, c.factor) }

// AdaptToFrame updates the factor for the *next* frame based on nEvaluated,
// the number of HMMs evaluated in the frame just finished. Frames above the
// cap narrow the factor by 0.9, floored at 0.1; frames at or below the cap
// (or with the cap disabled) reset the factor to 1.0. Returns the new
// factor.
func (c *Controller) AdaptToFrame(nEvaluated int) float64 {
	if c.cfg.MaxHMMPerFrame < 0 || nEvaluated <= c.cfg.MaxHMMPerFrame {
		c.factor = 1.0
		return c.factor
	}
	c.factor *= narrowFactor
	if c.factor < minFactor {
		c.factor = minFactor
	}
	return c.factor
}

// scale multiplies a LogProb beam margin by factor, truncating toward zero.
// Beams are negative (a margin subtracted from bestscore), so truncation
// toward zero is the direction that narrows the search exactly as
// "beam * factor" does in the reference fixed-point implementation.
func scale(beam types.LogProb, factor float64) types.LogProb {
	return types.LogProb(float64(beam) * factor)
}
