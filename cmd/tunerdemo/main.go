// Command tunerdemo drives the pitch detection engine with a synthetic
// test tone and prints the resulting pitch reports as they are emitted.
//
// Usage:
//
//	tunerdemo [flags]
//
// Examples:
//
//	tunerdemo -freq 110 -preset standard-e
//	tunerdemo -freq 82.41 -noise 0.02 -seconds 3
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-tuner/pitch"
)

func main() {
	freq := flag.Float64("freq", 110, "synthetic tone frequency in Hz")
	sampleRate := flag.Float64("sr", 44100, "sample rate in Hz")
	seconds := flag.Float64("seconds", 2, "seconds of audio to synthesize")
	noise := flag.Float64("noise", 0, "amplitude of additive white noise (0..1)")
	chunk := flag.Int("chunk", 512, "samples pushed per Detector.Push call")
	preset := flag.String("preset", "standard-e", "tuning preset id")
	harmonic := flag.Bool("harmonic", true, "enable octave/harmonic correction")
	agc := flag.Bool("agc", false, "enable automatic gain control")
	agcTarget := flag.Float64("agc-target", 0.3, "AGC target RMS")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tunerdemo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Streams a synthetic tone through the pitch detector and prints reports.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pitch.RegisterBuiltinTunings()

	mask := pitch.FilterHighpass | pitch.FilterNotch60 | pitch.FilterLowpass
	features := pitch.FeatureMovingAverage | pitch.FeatureClarityEMA
	if *harmonic {
		features |= pitch.FeatureOctaveCorrect | pitch.FeatureHarmonicCorrect
	}
	if *agc {
		features |= pitch.FeatureAGC
	}

	d, err := pitch.NewDetector(pitch.Config{
		SampleRate:     *sampleRate,
		FMin:           60,
		FMax:           1400,
		FilterMask:     mask,
		FeatureMask:    features,
		AGCTargetRMS:   *agcTarget,
		TuningPresetID: *preset,
	})
	if err != nil {
		logger.Error("failed to build detector", "error", err)
		os.Exit(1)
	}

	samples := synthesize(*freq, *sampleRate, *seconds, *noise)

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "sample\tfreq(Hz)\tnote\tcents\tclarity\tconfidence")

	for i := 0; i < len(samples); i += *chunk {
		end := i + *chunk
		if end > len(samples) {
			end = len(samples)
		}

		report, rejection := d.Push(samples[i:end])
		if report == nil {
			if rejection != pitch.RejectionNone {
				logger.Debug("block rejected", "sample", i, "reason", rejection)
			}
			continue
		}

		fmt.Fprintf(w, "%d\t%.2f\t%s\t%+.1f\t%.2f\t%.2f\n",
			i, report.Freq, report.TuningTo.Note, report.TuningTo.Cents,
			report.Clarity, report.Confidence)
	}

	w.Flush()
}

func synthesize(freq, sampleRate, seconds, noiseAmp float64) []float32 {
	n := int(seconds * sampleRate)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / sampleRate
		s := 0.5 * math.Sin(2*math.Pi*freq*t)
		if noiseAmp > 0 {
			s += noiseAmp * (2*rand.Float64() - 1)
		}
		out[i] = float32(s)
	}
	return out
}
