package pitch

import (
	"math"
	"testing"
)

func TestSmoother_MeanBelowMedianFloor(t *testing.T) {
	s := newSmoother(7, 0.25)
	freqs := []float64{440, 441, 439}
	var last float64
	for _, f := range freqs {
		smoothed, _, ok := s.admit(f, 0.9, 440, true, true)
		if !ok {
			t.Fatalf("unexpected rejection for %v", f)
		}
		last = smoothed
	}
	want := (440.0 + 441.0 + 439.0) / 3
	if math.Abs(last-want) > 1e-9 {
		t.Fatalf("smoothed=%v, want %v", last, want)
	}
}

func TestSmoother_MedianOnceWindowFull(t *testing.T) {
	s := newSmoother(7, 0.25)
	freqs := []float64{440, 441, 439, 440, 10000}
	var last float64
	for _, f := range freqs {
		smoothed, _, ok := s.admit(f, 0.9, 440, true, true)
		if ok {
			last = smoothed
		}
	}
	// The 10000 outlier should either be rejected outright, or if admitted,
	// median-of-window must still sit near the cluster rather than being
	// dragged toward it the way a mean would be.
	if last > 1000 {
		t.Fatalf("median smoothing failed to resist outlier: got %v", last)
	}
}

func TestSmoother_RejectsFarOutlier(t *testing.T) {
	s := newSmoother(7, 0.25)
	for _, f := range []float64{440, 441, 439} {
		if _, _, ok := s.admit(f, 0.9, 440, true, true); !ok {
			t.Fatalf("unexpected rejection for %v", f)
		}
	}
	if _, _, ok := s.admit(4000, 0.9, 440, true, true); ok {
		t.Fatal("expected rejection of a far outlier once a cents-to-target mean is established")
	}
}

func TestSmoother_RunningMeanTracksCentsToTarget(t *testing.T) {
	s := newSmoother(7, 0.25)
	// Every sample sits near a consistent +20 cent offset from target; the
	// running mean should settle there and keep admitting similar offsets.
	target := 440.0
	offset := math.Exp2(20.0 / 1200.0)
	for i := 0; i < 5; i++ {
		if _, _, ok := s.admit(target*offset, 0.9, target, true, true); !ok {
			t.Fatalf("unexpected rejection on iteration %d", i)
		}
	}
	if s.centsCount != 5 {
		t.Fatalf("centsCount=%v, want 5", s.centsCount)
	}
	if math.Abs(s.centsMean-20.0) > 0.5 {
		t.Fatalf("centsMean=%v, want ~20", s.centsMean)
	}
}

func TestSmoother_NoTargetDisablesGate(t *testing.T) {
	s := newSmoother(7, 0.25)
	for _, f := range []float64{440, 441, 439} {
		if _, _, ok := s.admit(f, 0.9, 0, true, true); !ok {
			t.Fatalf("unexpected rejection for %v with no target", f)
		}
	}
	if _, _, ok := s.admit(4000, 0.9, 0, true, true); !ok {
		t.Fatal("expected admission of any frequency when target <= 0")
	}
}

func TestSmoother_ClarityEMA(t *testing.T) {
	s := newSmoother(5, 0.5)
	_, conf, _ := s.admit(440, 1.0, 440, true, true)
	if math.Abs(conf-0.5) > 1e-9 {
		t.Fatalf("conf=%v, want 0.5 after first sample with alpha=0.5", conf)
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := newSmoother(5, 0.25)
	s.admit(440, 0.8, 440, true, true)
	s.reset()
	if len(s.window) != 0 || s.clarityEMA != 0 || s.centsCount != 0 || s.centsMean != 0 {
		t.Fatal("reset did not clear state")
	}
}

func TestSmoother_WindowDisabledPassesThroughUnfiltered(t *testing.T) {
	s := newSmoother(7, 0.25)
	for _, f := range []float64{440, 441, 439} {
		s.admit(f, 0.9, 440, true, true)
	}
	// With useWindow=false, even a wild outlier must pass straight through
	// and never be rejected, since the FIFO/outlier gate is bypassed.
	smoothed, _, ok := s.admit(10000, 0.9, 440, false, true)
	if !ok || smoothed != 10000 {
		t.Fatalf("smoothed=%v ok=%v, want passthrough of 10000", smoothed, ok)
	}
}

func TestSmoother_ClarityEMADisabledPassesThroughRaw(t *testing.T) {
	s := newSmoother(5, 0.5)
	_, conf, _ := s.admit(440, 0.73, 440, true, false)
	if conf != 0.73 {
		t.Fatalf("conf=%v, want raw clarity 0.73 passthrough", conf)
	}
}
