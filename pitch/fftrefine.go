package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tuner/dsp/spectrum"
	"github.com/cwbudde/algo-tuner/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

const (
	fftRefineNeighborhood = 3
	fftRefineMaxCents     = 80.0
	logMagFloor           = 1e-12
)

// fftRefiner locates the spectral peak nearest a YIN estimate and refines
// it by quadratic interpolation in log-magnitude over a single real FFT of
// the (windowed, zero-padded) analysis block.
type fftRefiner struct {
	plan       *algofft.Plan[complex128]
	n          int // block size N
	padded     int // FFT length N' >= N, power of two
	sampleRate float64

	windowCoeffs []float64
	timeBuf      []complex128
	freqBuf      []complex128
}

func newFFTRefiner(blockSize int, sampleRate float64) (*fftRefiner, error) {
	padded := nextPow2(blockSize)

	plan, err := algofft.NewPlan64(padded)
	if err != nil {
		return nil, fmt.Errorf("pitch: failed to create FFT plan: %w", err)
	}

	return &fftRefiner{
		plan:         plan,
		n:            blockSize,
		padded:       padded,
		sampleRate:   sampleRate,
		windowCoeffs: window.Generate(window.TypeHann, blockSize),
		timeBuf:      make([]complex128, padded),
		freqBuf:      make([]complex128, padded),
	}, nil
}

// refine runs the FFT-based peak search and returns the combined estimate
// per spec: adopt the FFT-refined frequency only if it lies within 80 cents
// of fRaw, otherwise keep fRaw unchanged (this guards against FFT-side
// octave errors corrupting a good YIN estimate).
func (r *fftRefiner) refine(block []float64, fRaw float64) (PitchCandidate, error) {
	for i := 0; i < r.padded; i++ {
		if i < len(block) && i < len(r.windowCoeffs) {
			r.timeBuf[i] = complex(block[i]*r.windowCoeffs[i], 0)
		} else {
			r.timeBuf[i] = 0
		}
	}

	if err := r.plan.Forward(r.freqBuf, r.timeBuf); err != nil {
		return PitchCandidate{}, fmt.Errorf("pitch: forward FFT failed: %w", err)
	}

	mag := spectrum.Magnitude(r.freqBuf[:r.padded/2+1])

	binHz := r.sampleRate / float64(r.padded)
	centerBin := int(math.Round(fRaw / binHz))

	peakBin := r.localPeakBin(mag, centerBin)
	kStar := quadraticLogMagPeak(mag, peakBin)
	fFFT := kStar * r.sampleRate / float64(r.padded)

	if fFFT <= 0 || math.IsNaN(fFFT) || math.IsInf(fFFT, 0) {
		return PitchCandidate{Frequency: fRaw, Source: SourceFFTRefined}, nil
	}

	cents := 1200 * math.Log2(fFFT/fRaw)
	if math.Abs(cents) < fftRefineMaxCents {
		return PitchCandidate{Frequency: fFFT, Source: SourceFFTRefined}, nil
	}
	return PitchCandidate{Frequency: fRaw, Source: SourceFFTRefined}, nil
}

// localPeakBin finds the local magnitude maximum within a small
// neighbourhood of center, clamped to valid bin indices.
func (r *fftRefiner) localPeakBin(mag []float64, center int) int {
	lo := center - fftRefineNeighborhood
	hi := center + fftRefineNeighborhood
	if lo < 1 {
		lo = 1
	}
	if hi > len(mag)-2 {
		hi = len(mag) - 2
	}
	if lo > hi {
		return clampInt(center, 1, len(mag)-2)
	}

	best := lo
	for k := lo; k <= hi; k++ {
		if mag[k] > mag[best] {
			best = k
		}
	}
	return best
}

// quadraticLogMagPeak refines an integer bin index to a fractional bin
// using quadratic interpolation over the log-magnitude of its neighbors.
func quadraticLogMagPeak(mag []float64, k int) float64 {
	if k <= 0 || k >= len(mag)-1 {
		return float64(k)
	}

	l0 := math.Log(math.Max(mag[k-1], logMagFloor))
	l1 := math.Log(math.Max(mag[k], logMagFloor))
	l2 := math.Log(math.Max(mag[k+1], logMagFloor))

	denom := l0 - 2*l1 + l2
	if denom == 0 {
		return float64(k)
	}

	shift := 0.5 * (l0 - l2) / denom
	if shift < -1 || shift > 1 {
		return float64(k)
	}

	return float64(k) + shift
}
