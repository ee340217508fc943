package pitch

import (
	"math"
	"testing"
)

func TestFFTRefiner_RefinesSinePeriod(t *testing.T) {
	sr := 44100.0
	freq := 440.0
	n := 4096

	block := sineBlock(freq, sr, n)
	r, err := newFFTRefiner(n, sr)
	if err != nil {
		t.Fatalf("newFFTRefiner: %v", err)
	}

	// Perturb the raw estimate slightly, as YIN's fractional lag would.
	fRaw := freq * 1.01

	cand, err := r.refine(block, fRaw)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}

	cents := 1200 * math.Log2(cand.Frequency/freq)
	if math.Abs(cents) > 20 {
		t.Fatalf("refined freq=%v cents=%v off target %v", cand.Frequency, cents, freq)
	}
}

func TestFFTRefiner_RejectsFarCandidate(t *testing.T) {
	sr := 44100.0
	freq := 440.0
	n := 4096

	block := sineBlock(freq, sr, n)
	r, err := newFFTRefiner(n, sr)
	if err != nil {
		t.Fatalf("newFFTRefiner: %v", err)
	}

	// fRaw is an octave off; the true spectral peak sits ~1200 cents away
	// from it, well outside the 80 cent combine threshold, so refine must
	// fall back to fRaw unchanged.
	fRaw := freq / 2

	cand, err := r.refine(block, fRaw)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if cand.Frequency != fRaw {
		t.Fatalf("expected fallback to fRaw=%v, got %v", fRaw, cand.Frequency)
	}
}

func TestQuadraticLogMagPeak_BoundsAreSafe(t *testing.T) {
	mag := []float64{0.1, 0.2, 0.3}
	if got := quadraticLogMagPeak(mag, 0); got != 0 {
		t.Fatalf("expected no interpolation at k=0, got %v", got)
	}
	if got := quadraticLogMagPeak(mag, 2); got != 2 {
		t.Fatalf("expected no interpolation at k=len-1, got %v", got)
	}
}
