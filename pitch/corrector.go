package pitch

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-tuner/dsp/spectrum"
)

// correctorMultiplier describes one octave/harmonic alternative to a raw
// pitch estimate, along with which feature-mask bit gates considering it.
type correctorMultiplier struct {
	factor  float64
	feature FeatureMask
}

// candidateMultipliers covers f/2, f, 2f, 3f, 3f/2 per spec. f itself (1.0)
// is always considered regardless of mask.
var candidateMultipliers = []correctorMultiplier{
	{factor: 0.5, feature: FeatureOctaveCorrect},
	{factor: 1.0, feature: 0},
	{factor: 2.0, feature: FeatureOctaveCorrect},
	{factor: 3.0, feature: FeatureHarmonicCorrect},
	{factor: 1.5, feature: FeatureHarmonicCorrect},
}

const (
	correctorCentsWeight    = 1.0
	correctorEvidenceWeight = 40.0
	correctorMaxCents       = 600.0
)

// corrector re-scores a raw pitch estimate against its octave/harmonic
// alternatives, combining a cents-distance-to-target penalty with spectral
// evidence gathered by a single reusable Goertzel analyzer that is re-tuned
// to each candidate frequency in turn.
type corrector struct {
	sampleRate float64
	goertzel   *spectrum.Goertzel
	logMags    []float64
}

func newCorrector(sampleRate float64) (*corrector, error) {
	g, err := spectrum.NewGoertzel(1, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("pitch: failed to build corrector analyzer: %w", err)
	}
	return &corrector{
		sampleRate: sampleRate,
		goertzel:   g,
		logMags:    make([]float64, len(candidateMultipliers)),
	}, nil
}

// correct considers fRaw and its octave/harmonic alternatives (gated by
// mask) and returns the one minimizing a combined cost of cents-distance to
// target and spectral evidence. target <= 0 disables the cents term and the
// choice falls back to spectral evidence alone, with fRaw itself as the
// tie-break default.
func (c *corrector) correct(block []float64, fRaw, target float64, mask FeatureMask) PitchCandidate {
	if !mask.Has(FeatureOctaveCorrect) && !mask.Has(FeatureHarmonicCorrect) {
		return PitchCandidate{Frequency: fRaw, Source: SourceCorrected}
	}

	freqs := make([]float64, len(candidateMultipliers))
	valid := make([]bool, len(candidateMultipliers))

	for i, m := range candidateMultipliers {
		f := fRaw * m.factor
		freqs[i] = f
		valid[i] = f > 0 && f < c.sampleRate/2 && (m.feature == 0 || mask.Has(m.feature))
	}

	for i, f := range freqs {
		if !valid[i] {
			c.logMags[i] = math.Inf(-1)
			continue
		}
		if err := c.goertzel.SetFrequency(f); err != nil {
			c.logMags[i] = math.Inf(-1)
			continue
		}
		c.goertzel.Reset()
		c.goertzel.ProcessBlock(block)
		c.logMags[i] = c.goertzel.PowerDB()
	}

	median := medianOfFinite(c.logMags)

	bestIdx := -1
	bestCost := math.Inf(1)
	for i, f := range freqs {
		if !valid[i] {
			continue
		}

		cost := -correctorEvidenceWeight * (c.logMags[i] - median)

		if target > 0 {
			cents := 1200 * math.Log2(f/target)
			if math.Abs(cents) > correctorMaxCents {
				continue
			}
			cost += correctorCentsWeight * math.Abs(cents)
		}

		if cost < bestCost || (cost == bestCost && candidateMultipliers[i].factor == 1) {
			bestCost = cost
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return PitchCandidate{Frequency: fRaw, Source: SourceCorrected}
	}

	return PitchCandidate{Frequency: freqs[bestIdx], Source: SourceCorrected}
}

func medianOfFinite(vals []float64) float64 {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0
	}

	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}
