// Package pitch implements a real-time monophonic pitch detection and
// tuning engine for stringed instruments.
//
// A [Detector] owns a ring accumulator, a biquad filter bank, optional AGC,
// a YIN fundamental-frequency estimator, optional FFT-based refinement and
// octave/harmonic correction, and a temporal smoothing stage. Callers drive
// it by repeatedly calling [Detector.Push] with small fixed-size sample
// chunks; a [PitchReport] is returned whenever an analysis block completes
// and passes all quality gates.
//
// The package is single-threaded. The ring, filter, YIN and smoothing
// buffers are sized at construction time from the detector's configured
// block size; the octave/harmonic correction and FFT refinement stages still
// allocate small per-block slices, so steady-state processing is not
// allocation-free. A detector's state may not be shared with or aliased by
// another detector.
package pitch
