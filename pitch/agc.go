package pitch

import (
	"math"

	"github.com/cwbudde/algo-tuner/dsp/core"
	timestats "github.com/cwbudde/algo-tuner/stats/time"
)

const (
	agcEpsilon        = 1e-9
	defaultAttackCoef = 0.5
	defaultReleaseCoef = 0.05
	defaultMinGain     = 0.1
	defaultMaxGain     = 10.0
)

// agcState implements the spec's automatic gain control: an exponential
// gain-approach toward a target RMS, clamped to [gMin, gMax], with a faster
// attack than release so transient loud passages are tamed quickly while
// quiet passages recover gain smoothly.
type agcState struct {
	enabled    bool
	targetRMS  float64
	gain       float64
	gMin, gMax float64
	attack     float64
	release    float64
}

func newAGC(targetRMS float64) *agcState {
	return &agcState{
		targetRMS: targetRMS,
		gain:      1,
		gMin:      defaultMinGain,
		gMax:      defaultMaxGain,
		attack:    defaultAttackCoef,
		release:   defaultReleaseCoef,
	}
}

func (a *agcState) setEnabled(enabled bool, targetRMS float64) {
	a.enabled = enabled
	if targetRMS > 0 {
		a.targetRMS = targetRMS
	}
}

// apply computes the pre-AGC RMS of buf, and — if enabled — scales buf
// in place toward targetRMS. It always returns the pre-AGC RMS, which the
// caller must retain and report regardless of whether AGC ran.
func (a *agcState) apply(buf []float64) (preRMS float64) {
	preRMS = timestats.RMS(buf)
	if !a.enabled {
		return preRMS
	}

	target := a.targetRMS / math.Max(preRMS, agcEpsilon)

	if target < a.gain {
		a.gain += (target - a.gain) * a.attack
	} else {
		a.gain += (target - a.gain) * a.release
	}
	a.gain = core.Clamp(a.gain, a.gMin, a.gMax)

	for i, x := range buf {
		buf[i] = x * a.gain
	}

	return preRMS
}

func (a *agcState) reset() {
	a.gain = 1
}
