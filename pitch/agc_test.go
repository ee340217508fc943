package pitch

import (
	"math"
	"testing"
)

func TestAGC_DisabledReturnsPreRMSUnchanged(t *testing.T) {
	a := newAGC(0.3)
	buf := []float64{0.1, -0.1, 0.1, -0.1}
	want := append([]float64(nil), buf...)
	pre := a.apply(buf)
	if math.Abs(pre-0.1) > 1e-9 {
		t.Fatalf("preRMS=%v, want ~0.1", pre)
	}
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("disabled AGC mutated buffer at %d", i)
		}
	}
}

func TestAGC_EnabledMovesTowardTarget(t *testing.T) {
	a := newAGC(0.5)
	a.setEnabled(true, 0.5)

	buf := make([]float64, 512)
	for i := range buf {
		buf[i] = 0.05 * math.Sin(2*math.Pi*100*float64(i)/44100)
	}

	var lastRMS float64
	for i := 0; i < 200; i++ {
		b := append([]float64(nil), buf...)
		a.apply(b)
		lastRMS = rms(b)
	}

	if lastRMS < 0.3 {
		t.Fatalf("AGC did not raise gain toward target: final rms=%v", lastRMS)
	}
}

func TestAGC_GainClamped(t *testing.T) {
	a := newAGC(0.5)
	a.setEnabled(true, 0.5)
	a.attack = 1.0

	tiny := make([]float64, 256)
	for i := range tiny {
		tiny[i] = 1e-12
	}
	for i := 0; i < 50; i++ {
		b := append([]float64(nil), tiny...)
		a.apply(b)
	}
	if a.gain > a.gMax {
		t.Fatalf("gain %v exceeded gMax %v", a.gain, a.gMax)
	}
}

func TestAGC_Reset(t *testing.T) {
	a := newAGC(0.5)
	a.gain = 5
	a.reset()
	if a.gain != 1 {
		t.Fatalf("reset did not restore unity gain: %v", a.gain)
	}
}
