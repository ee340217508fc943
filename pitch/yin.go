package pitch

import "math"

const (
	defaultYinThreshold   = 0.1
	defaultClarityFloor   = 0.5
	yinEpsilon            = 1e-12
)

// yinState holds the scratch buffers for one detector's YIN estimator.
// Buffers are sized once from the block size N and reused across blocks.
type yinState struct {
	diff  []float64 // difference function, length N/2+1
	cmndf []float64 // cumulative mean normalised difference, length N/2+1

	tauMin, tauMax int
	threshold      float64
}

func newYinState(blockSize int, tauMin, tauMax int, threshold float64) *yinState {
	if threshold <= 0 {
		threshold = defaultYinThreshold
	}
	return &yinState{
		diff:      make([]float64, blockSize/2+1),
		cmndf:     make([]float64, blockSize/2+1),
		tauMin:    tauMin,
		tauMax:    tauMax,
		threshold: threshold,
	}
}

// estimate runs the YIN algorithm (difference function, CMNDF, absolute
// threshold search, parabolic interpolation) over block and returns the
// resulting candidate plus whether a usable minimum was found at all.
func (y *yinState) estimate(block []float64, sampleRate float64) (PitchCandidate, bool) {
	n := len(block)
	half := n / 2
	if half >= len(y.diff) {
		half = len(y.diff) - 1
	}

	w := n - y.tauMax
	if w < 1 {
		w = n
	}

	y.diff[0] = 0
	for tau := 1; tau <= half; tau++ {
		sum := 0.0
		limit := w
		if tau+limit > n {
			limit = n - tau
		}
		for j := 0; j < limit; j++ {
			d := block[j] - block[j+tau]
			sum += d * d
		}
		y.diff[tau] = sum
	}

	runningSum := 0.0
	y.cmndf[0] = 1
	for tau := 1; tau <= half; tau++ {
		runningSum += y.diff[tau]
		if runningSum <= yinEpsilon {
			y.cmndf[tau] = 1
			continue
		}
		y.cmndf[tau] = y.diff[tau] * float64(tau) / runningSum
	}

	tauMax := half
	if y.tauMax < tauMax {
		tauMax = y.tauMax
	}
	tauMin := y.tauMin
	if tauMin < 1 {
		tauMin = 1
	}
	if tauMin > tauMax {
		return PitchCandidate{}, false
	}

	selected := -1
	for tau := tauMin; tau <= tauMax; tau++ {
		if y.cmndf[tau] < y.threshold && tau+1 <= half && y.cmndf[tau] < y.cmndf[tau+1] {
			selected = tau
			break
		}
	}

	if selected < 0 {
		minVal := math.Inf(1)
		for tau := tauMin; tau <= tauMax; tau++ {
			if y.cmndf[tau] < minVal {
				minVal = y.cmndf[tau]
				selected = tau
			}
		}
	}

	if selected < 0 {
		return PitchCandidate{}, false
	}

	tauStar := parabolicInterp(y.cmndf, selected, tauMin, tauMax)
	if tauStar < float64(y.tauMin) || tauStar > float64(y.tauMax) {
		return PitchCandidate{}, false
	}

	clarity := 1 - y.cmndf[selected]
	clarity = math.Max(0, math.Min(1, clarity))

	return PitchCandidate{
		Frequency: sampleRate / tauStar,
		Clarity:   clarity,
		RawLag:    tauStar,
		Source:    SourceYIN,
	}, true
}

// parabolicInterp refines the integer lag `tau` to a fractional lag using
// the three CMNDF samples around it. At either bound of [tauMin, tauMax]
// interpolation is skipped and the integer lag is returned unchanged.
func parabolicInterp(cmndf []float64, tau, tauMin, tauMax int) float64 {
	if tau <= tauMin || tau >= tauMax || tau-1 < 0 || tau+1 >= len(cmndf) {
		return float64(tau)
	}

	s0, s1, s2 := cmndf[tau-1], cmndf[tau], cmndf[tau+1]
	denom := s0 - 2*s1 + s2
	if denom == 0 {
		return float64(tau)
	}

	shift := 0.5 * (s0 - s2) / denom
	if shift < -1 || shift > 1 {
		return float64(tau)
	}

	return float64(tau) + shift
}

// lagBounds converts a frequency band [fMin, fMax] to YIN lag bounds.
func lagBounds(fMin, fMax, sampleRate float64) (tauMin, tauMax int) {
	tauMin = int(math.Floor(sampleRate / fMax))
	tauMax = int(math.Ceil(sampleRate / fMin))
	if tauMin < 1 {
		tauMin = 1
	}
	return tauMin, tauMax
}
