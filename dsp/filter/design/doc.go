// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing, using the standard RBJ
// ("Audio EQ Cookbook") lowpass, highpass, bandpass, and notch forms.
//
// The sub-package design/pass cascades these into higher-order Butterworth
// filters.
package design
