package adapter

import (
	"fmt"
	"math"

	"github.com/hyperjump/curio/internal/index"
)

// Params are the tunable coefficients of the localized correction. They are
// configuration, not contract: any setting must keep the correction bounded
// and zero at empty state.
type Params struct {
	// Lambda scales the summed kernel contributions.
	Lambda float64 `yaml:"lambda" json:"lambda"`
	// Bandwidth is the kernel spread on cosine distance. Larger values let
	// feedback reach further across embedding space.
	Bandwidth float64 `yaml:"bandwidth" json:"bandwidth"`
	// Clamp caps |correction| so adaptation shifts ranking locally but can
	// never push a score past the configured ceiling.
	Clamp float64 `yaml:"clamp" json:"clamp"`
	// HalfLife is the number of newer events after which a feedback event's
	// influence halves. Zero disables recency decay.
	HalfLife float64 `yaml:"half_life" json:"half_life"`
}

// Defaults chosen so a single unit-weight event at distance 0 contributes
// Lambda before clamping.
const (
	DefaultLambda    = 0.25
	DefaultBandwidth = 0.35
	DefaultClamp     = 0.5
	DefaultHalfLife  = 0 // no decay
)

func (p *Params) applyDefaults() {
	if p.Lambda == 0 {
		p.Lambda = DefaultLambda
	}
	if p.Bandwidth == 0 {
		p.Bandwidth = DefaultBandwidth
	}
	if p.Clamp == 0 {
		p.Clamp = DefaultClamp
	}
	if p.HalfLife < 0 {
		p.HalfLife = 0
	}
}

// gaussianKernel is exp(-d^2 / (2*bw^2)) on the cosine distance between x and
// e. Contributions below a small floor are treated as zero so far-away
// feedback leaves a candidate untouched.
func gaussianKernel(x, e []float32, bandwidth float64) float64 {
	d := index.CosineDistance(x, e)
	k := math.Exp(-(d * d) / (2 * bandwidth * bandwidth))
	if k < kernelFloor {
		return 0
	}
	return k
}

// kernelFloor cuts off negligible contributions; keeps unrelated regions of
// embedding space exactly unperturbed.
const kernelFloor = 1e-6

// recencyDecay is 0.5^(age/halfLife), where age counts events recorded since.
func recencyDecay(age uint64, halfLife float64) float64 {
	if halfLife <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/halfLife)
}

func clamp(v, ceiling float64) float64 {
	if v > ceiling {
		return ceiling
	}
	if v < -ceiling {
		return -ceiling
	}
	return v
}

func errBadPolarity(p int) error {
	return fmt.Errorf("polarity must be +1 or -1, got %d", p)
}

func errBadWeight(w float64) error {
	return fmt.Errorf("weight must be >= 0, got %g", w)
}
