package pitch

import (
	"fmt"

	"github.com/cwbudde/algo-tuner/dsp/core"
	"github.com/cwbudde/algo-tuner/dsp/filter/biquad"
	"github.com/cwbudde/algo-tuner/dsp/filter/design"
	"github.com/cwbudde/algo-tuner/dsp/filter/design/pass"
)

const (
	highpassHz  = 30.0
	notchQ      = 30.0
	bandpassQ   = 8.0
	lowpassMult = 1.2
)

// filterBank is a fixed-order cascade of biquad sections: highpass, four
// mains-hum notches, lowpass, then any number of per-string bandpasses.
// Sections are enabled by FilterMask; disabled sections are skipped during
// ProcessBlock but keep their delay-line state so re-enabling mid-stream
// does not produce a glitch from stale memory.
type filterBank struct {
	mask FilterMask

	highpass *biquad.Section
	notch50  *biquad.Section
	notch60  *biquad.Section
	notch100 *biquad.Section
	notch120 *biquad.Section
	lowpass  *biquad.Section

	strings      *biquad.Chain
	stringCoeffs []biquad.Coefficients

	sampleRate float64
}

func newFilterBank(sampleRate float64, mask FilterMask, maxTargetFreq float64) *filterBank {
	fb := &filterBank{mask: mask, sampleRate: sampleRate}

	hpCoeffs := pass.ButterworthHP(highpassHz, 2, sampleRate)
	if len(hpCoeffs) > 0 {
		fb.highpass = biquad.NewSection(hpCoeffs[0])
	} else {
		fb.highpass = biquad.NewSection(biquad.Coefficients{B0: 1})
	}

	lpFreq := lowpassMult * maxTargetFreq
	lpCoeffs := pass.ButterworthLP(lpFreq, 2, sampleRate)
	if len(lpCoeffs) > 0 {
		fb.lowpass = biquad.NewSection(lpCoeffs[0])
	} else {
		fb.lowpass = biquad.NewSection(biquad.Coefficients{B0: 1})
	}

	fb.notch50 = biquad.NewSection(design.Notch(50, notchQ, sampleRate))
	fb.notch60 = biquad.NewSection(design.Notch(60, notchQ, sampleRate))
	fb.notch100 = biquad.NewSection(design.Notch(100, notchQ, sampleRate))
	fb.notch120 = biquad.NewSection(design.Notch(120, notchQ, sampleRate))

	fb.strings = biquad.NewChain(nil)

	return fb
}

// addStringFilter appends a narrow per-string bandpass at freq to the
// cascade's tail. The whole per-string chain is rebuilt via
// UpdateCoefficients, and the delay-line state of the existing string
// filters is saved beforehand and restored afterwards.
func (fb *filterBank) addStringFilter(freq float64) error {
	if freq <= 0 || freq >= fb.sampleRate/2 {
		return fmt.Errorf("pitch: string filter frequency %v out of range", freq)
	}
	coeffs := design.Bandpass(freq, bandpassQ, fb.sampleRate)
	fb.stringCoeffs = append(fb.stringCoeffs, coeffs)
	prev := fb.strings.State()
	fb.strings.UpdateCoefficients(fb.stringCoeffs, fb.strings.Gain())
	for i, st := range prev {
		fb.strings.Section(i).SetState(st)
	}
	return nil
}

// processBlock filters buf in place through every enabled stage, in fixed
// order, flushing denormals after each stage to avoid CPU stalls on
// subnormal delay-line values.
func (fb *filterBank) processBlock(buf []float64) {
	if fb.mask.Has(FilterHighpass) {
		fb.highpass.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.mask.Has(FilterNotch50) {
		fb.notch50.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.mask.Has(FilterNotch60) {
		fb.notch60.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.mask.Has(FilterNotch100) {
		fb.notch100.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.mask.Has(FilterNotch120) {
		fb.notch120.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.mask.Has(FilterLowpass) {
		fb.lowpass.ProcessBlock(buf)
		flushBlock(buf)
	}
	if fb.strings.NumSections() > 0 {
		fb.strings.ProcessBlock(buf)
		flushBlock(buf)
	}
}

func (fb *filterBank) reset() {
	fb.highpass.Reset()
	fb.notch50.Reset()
	fb.notch60.Reset()
	fb.notch100.Reset()
	fb.notch120.Reset()
	fb.lowpass.Reset()
	fb.strings.Reset()
}

func flushBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = core.FlushDenormals(x)
	}
}
