package pitch

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	smoothingMinWindow   = 3
	smoothingMaxWindow   = 7
	medianWindowFloor    = 5
	defaultClarityAlpha  = 0.25
	defaultOutlierBuffer = 50.0
)

// smoother implements the temporal smoothing stage: a small FIFO of recent
// frequency estimates (median-of-window once the window is large enough to
// make a median meaningful, mean otherwise), a clarity EMA, and an outlier
// gate that rejects candidates whose cents-distance to the tuning target
// exceeds a running mean of that distance plus a fixed buffer, before they
// ever enter the FIFO.
type smoother struct {
	window     []float64
	k          int
	clarityEMA float64
	alpha      float64

	outlierBuffer float64
	centsMean     float64
	centsCount    int

	sorted []float64 // scratch for median, reused to avoid allocation
}

func newSmoother(k int, alpha float64) *smoother {
	k = clampInt(k, smoothingMinWindow, smoothingMaxWindow)
	if alpha <= 0 {
		alpha = defaultClarityAlpha
	}
	return &smoother{
		k:             k,
		alpha:         alpha,
		outlierBuffer: defaultOutlierBuffer,
		sorted:        make([]float64, 0, k),
	}
}

// admit applies the outlier gate, then (if accepted) pushes freq into the
// FIFO and folds clarity into the clarity EMA. target is the frequency the
// corrector/tuning mapper currently expects freq to be near; cents-to-target
// is measured against it and folded into a running mean. A target <= 0
// (no tuning resolved yet) disables the gate for that call.
//
// useWindow and useClarityEMA let a caller disable either half of the stage
// via its feature mask: with useWindow false the outlier gate and FIFO are
// bypassed entirely (freq passes through unchanged and is always accepted);
// with useClarityEMA false clarity passes through raw instead of being
// folded into the EMA.
func (s *smoother) admit(freq, clarity, target float64, useWindow, useClarityEMA bool) (smoothedFreq, confidence float64, accepted bool) {
	if !useWindow {
		if useClarityEMA {
			s.clarityEMA += s.alpha * (clarity - s.clarityEMA)
			return freq, s.clarityEMA, true
		}
		return freq, clarity, true
	}

	if target > 0 {
		cents := math.Abs(1200 * math.Log2(freq/target))
		if s.centsCount > 0 && cents > s.centsMean+s.outlierBuffer {
			return 0, s.clarityEMA, false
		}
		s.centsCount++
		s.centsMean += (cents - s.centsMean) / float64(s.centsCount)
	}

	s.push(freq)

	if useClarityEMA {
		s.clarityEMA += s.alpha * (clarity - s.clarityEMA)
		return s.smoothedFreq(), s.clarityEMA, true
	}
	return s.smoothedFreq(), clarity, true
}

func (s *smoother) push(freq float64) {
	s.window = append(s.window, freq)
	if len(s.window) > s.k {
		s.window = s.window[1:]
	}
}

func (s *smoother) smoothedFreq() float64 {
	n := len(s.window)
	if n == 0 {
		return 0
	}
	if n < medianWindowFloor {
		sum := 0.0
		for _, f := range s.window {
			sum += f
		}
		return sum / float64(n)
	}

	s.sorted = append(s.sorted[:0], s.window...)
	sort.Float64s(s.sorted)
	return stat.Quantile(0.5, stat.Empirical, s.sorted, nil)
}

func (s *smoother) reset() {
	s.window = s.window[:0]
	s.clarityEMA = 0
	s.centsMean = 0
	s.centsCount = 0
}
