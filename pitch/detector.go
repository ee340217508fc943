package pitch

import (
	"math"

	"github.com/cwbudde/algo-tuner/dsp/core"
)

// State names the detector's position in its per-block state machine.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateAnalysing
	StateEmitted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateAnalysing:
		return "analysing"
	case StateEmitted:
		return "emitted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const (
	defaultSilenceRMS    = 0.002
	defaultYinThresholdCfg = 0.1
	defaultSmoothingK    = 5
)

// Config configures a Detector at construction time. Zero values fall back
// to sensible defaults for guitar-range pitch tracking.
type Config struct {
	SampleRate float64
	BlockSize  int // 0 selects RecommendedBlockSize's default range

	FMin, FMax float64 // analysis frequency band in Hz

	FilterMask  FilterMask
	FeatureMask FeatureMask

	YinThreshold    float64
	SmoothingWindow int
	ClarityAlpha    float64

	// AGC is enabled via FeatureMask's FeatureAGC bit; AGCTargetRMS sets its
	// target once enabled (either here or later via SetAGC).
	AGCTargetRMS float64
	SilenceRMS   float64

	TuningPresetID string
}

// Detector runs the full per-block pitch detection pipeline: ring
// accumulation, filtering, AGC, YIN estimation, optional FFT refinement and
// octave/harmonic correction, and temporal smoothing against a tuning
// preset.
type Detector struct {
	proc core.ProcessorConfig

	fMin, fMax float64
	featureMask FeatureMask
	silenceRMS  float64
	presetID    string

	ring    *ring
	filters *filterBank
	agc     *agcState
	yin     *yinState
	fft     *fftRefiner
	corr    *corrector
	smooth  *smoother

	scratch      []float64
	state        State
	expectedFreq float64
}

// NewDetector validates cfg and builds a Detector. It returns a *ConfigError
// describing the first invalid field, or a wrapped error if building the FFT
// refiner or the corrector fails.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, configErr("SampleRate", cfg.SampleRate, ErrInvalidSampleRate)
	}

	fMin, fMax := cfg.FMin, cfg.FMax
	if fMin <= 0 {
		fMin = 70
	}
	if fMax <= 0 {
		fMax = 1200
	}
	if fMin >= fMax {
		return nil, configErr("FMax", fMax, ErrInvertedFreqBand)
	}

	blockSize := cfg.BlockSize
	if blockSize == 0 {
		blockSize = RecommendedBlockSize(fMin, cfg.SampleRate, 1, false)
	}
	if blockSize&(blockSize-1) != 0 {
		return nil, configErr("BlockSize", blockSize, ErrBlockSizeNotPow2)
	}
	if blockSize < 1024 || blockSize > 32768 {
		return nil, configErr("BlockSize", blockSize, ErrBlockSizeRange)
	}

	threshold := cfg.YinThreshold
	if threshold == 0 {
		threshold = defaultYinThresholdCfg
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, configErr("YinThreshold", threshold, ErrInvalidThreshold)
	}

	smoothingWindow := cfg.SmoothingWindow
	if smoothingWindow == 0 {
		smoothingWindow = defaultSmoothingK
	}
	if smoothingWindow < smoothingMinWindow || smoothingWindow > smoothingMaxWindow {
		return nil, configErr("SmoothingWindow", smoothingWindow, ErrInvalidAvgBuffer)
	}

	clarityAlpha := cfg.ClarityAlpha
	if clarityAlpha == 0 {
		clarityAlpha = defaultClarityAlpha
	}
	if clarityAlpha < 0.1 || clarityAlpha > 0.5 {
		return nil, configErr("ClarityAlpha", clarityAlpha, ErrInvalidClarityStep)
	}

	proc := core.ApplyProcessorOptions(
		core.WithSampleRate(cfg.SampleRate),
		core.WithBlockSize(blockSize),
	)

	tauMin, tauMax := lagBounds(fMin, fMax, proc.SampleRate)

	silenceRMS := cfg.SilenceRMS
	if silenceRMS <= 0 {
		silenceRMS = defaultSilenceRMS
	}

	d := &Detector{
		proc:        proc,
		fMin:        fMin,
		fMax:        fMax,
		featureMask: cfg.FeatureMask,
		silenceRMS:  silenceRMS,
		presetID:    cfg.TuningPresetID,

		ring:    newRing(proc.BlockSize),
		filters: newFilterBank(proc.SampleRate, cfg.FilterMask, fMax),
		agc:     newAGC(cfg.AGCTargetRMS),
		yin:     newYinState(proc.BlockSize, tauMin, tauMax, threshold),
		smooth:  newSmoother(smoothingWindow, clarityAlpha),

		scratch: make([]float64, proc.BlockSize),
		state:   StateIdle,
	}
	d.agc.setEnabled(cfg.FeatureMask.Has(FeatureAGC), cfg.AGCTargetRMS)

	if cfg.FeatureMask.Has(FeatureFFTRefinement) {
		fft, err := newFFTRefiner(proc.BlockSize, proc.SampleRate)
		if err != nil {
			return nil, err
		}
		d.fft = fft
	}

	corr, err := newCorrector(proc.SampleRate)
	if err != nil {
		return nil, err
	}
	d.corr = corr

	return d, nil
}

// AddStringFilter adds a narrow bandpass section tuned to freq to the
// filter bank, for instruments where a known fixed set of string
// frequencies is available ahead of detection.
func (d *Detector) AddStringFilter(freq float64) error {
	return d.filters.addStringFilter(freq)
}

// SetAGC enables or disables automatic gain control and sets its target
// RMS. A non-positive targetRMS leaves the previously configured target
// unchanged.
func (d *Detector) SetAGC(enabled bool, targetRMS float64) {
	d.agc.setEnabled(enabled, targetRMS)
	if enabled {
		d.featureMask |= FeatureAGC
	} else {
		d.featureMask &^= FeatureAGC
	}
}

// SetHarmonicCorrection toggles the harmonic-correction feature bits
// (3f and 3f/2 candidates) independently of octave correction.
func (d *Detector) SetHarmonicCorrection(enabled bool) {
	if enabled {
		d.featureMask |= FeatureHarmonicCorrect
	} else {
		d.featureMask &^= FeatureHarmonicCorrect
	}
}

// SetTuningPreset switches the preset used to compute TuningTo on future
// reports.
func (d *Detector) SetTuningPreset(presetID string) {
	d.presetID = presetID
}

// SetExpectedFreq biases octave/harmonic correction toward freq instead of
// the nearest tuning target, for callers (e.g. a string selector) that
// already know which string is being played. A non-positive freq clears
// the bias and reverts to nearest-tuning-target biasing.
func (d *Detector) SetExpectedFreq(freq float64) {
	d.expectedFreq = freq
}

// State returns the detector's state as of the most recent Push call.
func (d *Detector) State() State { return d.state }

// Reset clears all stateful buffers: the ring accumulator, filter history,
// AGC gain, and the temporal smoothing window. Use Reset when the input
// source changes discontinuously (e.g. a new string is selected).
func (d *Detector) Reset() {
	d.ring.reset()
	d.filters.reset()
	d.agc.reset()
	d.smooth.reset()
	d.state = StateIdle
}

// resetUnstable clears the filter bank and the ring accumulator, per the
// runtime-instability contract: a NaN/Inf input resets the biquad history
// (the most likely source of numerical blowup) and the partially filled
// analysis window, while preserving the temporal smoothing buffer, so a
// single bad block does not erase several seconds of lock.
func (d *Detector) resetUnstable() {
	d.filters.reset()
	d.ring.reset()
}

// Push feeds samples into the detector. It returns a *PitchReport once an
// analysis block completes and passes every quality gate; otherwise it
// returns a Rejection explaining why (or RejectionNone if the block is
// simply still accumulating).
func (d *Detector) Push(samples []float32) (*PitchReport, Rejection) {
	if len(d.scratch) < len(samples) {
		d.scratch = make([]float64, len(samples))
	}
	chunk := d.scratch[:len(samples)]

	for i, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			d.resetUnstable()
			d.state = StateRejected
			return nil, RejectionUnstable
		}
		chunk[i] = f
	}

	d.state = StateAccumulating
	block, ready := d.ring.push(chunk)
	if !ready {
		return nil, RejectionNone
	}

	d.state = StateAnalysing
	return d.analyse(block)
}

func (d *Detector) analyse(block []float64) (*PitchReport, Rejection) {
	d.filters.processBlock(block)

	for _, x := range block {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			d.resetUnstable()
			d.state = StateRejected
			return nil, RejectionUnstable
		}
	}

	preRMS := d.agc.apply(block)
	if preRMS < d.silenceRMS {
		d.state = StateRejected
		return nil, RejectionSilence
	}

	cand, ok := d.yin.estimate(block, d.proc.SampleRate)
	if !ok || cand.Clarity < defaultClarityFloor {
		d.state = StateRejected
		return nil, RejectionLowClarity
	}

	freq := cand.Frequency

	if d.fft != nil {
		refined, err := d.fft.refine(block, freq)
		if err == nil {
			freq = refined.Frequency
		}
	}

	target := d.expectedFreq
	if target <= 0 {
		_, nearest, _, haveTarget := nearestTarget(d.presetID, freq)
		if haveTarget {
			target = nearest
		}
	}

	if d.featureMask.Has(FeatureOctaveCorrect) || d.featureMask.Has(FeatureHarmonicCorrect) {
		corrected := d.corr.correct(block, freq, target, d.featureMask)
		freq = corrected.Frequency
	}

	if freq < d.fMin || freq > d.fMax {
		d.state = StateRejected
		return nil, RejectionOutOfBand
	}

	smoothedFreq, confidence, accepted := d.smooth.admit(freq, cand.Clarity, target,
		d.featureMask.Has(FeatureMovingAverage), d.featureMask.Has(FeatureClarityEMA))
	if !accepted {
		d.state = StateRejected
		return nil, RejectionOutlier
	}

	note, noteTarget, cents, haveNote := nearestTarget(d.presetID, smoothedFreq)

	report := &PitchReport{
		Freq:       smoothedFreq,
		Clarity:    cand.Clarity,
		RMS:        preRMS,
		Confidence: confidence,
	}
	if haveNote {
		report.TuningTo = TuningTo{Note: note, Freq: noteTarget, Cents: cents}
	}

	d.state = StateEmitted
	return report, RejectionNone
}
