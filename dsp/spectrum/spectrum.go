package spectrum

import (
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// ComplexBins is a read-only adapter for complex spectrum outputs.
//
// This allows integration with different FFT backends without coupling this
// package to any specific implementation.
type ComplexBins interface {
	Len() int
	At(i int) complex128
}

// SliceBins adapts a []complex128 as [ComplexBins].
type SliceBins []complex128

// Len returns the bin count.
func (s SliceBins) Len() int { return len(s) }

// At returns the bin value at index i.
func (s SliceBins) At(i int) complex128 { return s[i] }

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// This function uses SIMD-optimized implementations when available (AVX2, SSE2, NEON)
// for improved performance on large spectrum arrays. Scratch buffers are pooled
// internally, so in steady state this allocates only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)
	putScratch(buf)
	return out
}

// MagnitudeFromParts computes |X[k]| = sqrt(re[k]^2 + im[k]^2) into dst.
//
// This is the zero-allocation fast path for callers that already have real and
// imaginary parts in separate slices. All three slices must have the same length.
func MagnitudeFromParts(dst, re, im []float64) {
	vecmath.Magnitude(dst, re, im)
}

// MagnitudeBins returns |X[k]| for each bin from a [ComplexBins] source.
func MagnitudeBins(in ComplexBins) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, in.Len())
	for i := range out {
		out[i] = cmplx.Abs(in.At(i))
	}
	return out
}
