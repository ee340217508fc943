package pitch

import (
	"errors"
	"math"
	"testing"
)

func TestAddTuning_RejectsLengthMismatch(t *testing.T) {
	err := AddTuning("bad-1", "Bad", []string{"E2"}, []float64{82.41, 110})
	if !errors.Is(err, ErrTuningLengthMismatch) {
		t.Fatalf("err=%v, want ErrTuningLengthMismatch", err)
	}
}

func TestAddTuning_RejectsDuplicateFreq(t *testing.T) {
	err := AddTuning("bad-2", "Bad", []string{"A", "B"}, []float64{100, 100})
	if !errors.Is(err, ErrDuplicateFreq) {
		t.Fatalf("err=%v, want ErrDuplicateFreq", err)
	}
}

func TestAddTuning_IdempotentOnIdenticalContents(t *testing.T) {
	if err := AddTuning("idempotent-1", "X", []string{"A"}, []float64{100}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := AddTuning("idempotent-1", "X", []string{"A"}, []float64{100}); err != nil {
		t.Fatalf("re-registration with identical contents should be a no-op: %v", err)
	}
}

func TestAddTuning_RejectsRedefinitionWithDifferentContents(t *testing.T) {
	if err := AddTuning("conflict-1", "X", []string{"A"}, []float64{100}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := AddTuning("conflict-1", "X", []string{"A"}, []float64{200})
	if !errors.Is(err, ErrPresetRedefined) {
		t.Fatalf("err=%v, want ErrPresetRedefined", err)
	}
}

func TestRegisterBuiltinTunings_NearestTarget(t *testing.T) {
	RegisterBuiltinTunings()

	note, target, cents, ok := nearestTarget("standard-e", 82.0)
	if !ok {
		t.Fatal("expected a match")
	}
	if note != "E2" {
		t.Fatalf("note=%v, want E2", note)
	}
	if math.Abs(target-82.41) > 1e-9 {
		t.Fatalf("target=%v, want 82.41", target)
	}
	if math.Abs(cents) > 50 {
		t.Fatalf("cents=%v too large for a near match", cents)
	}
}

func TestNearestTarget_UnknownPreset(t *testing.T) {
	if _, _, _, ok := nearestTarget("does-not-exist", 100); ok {
		t.Fatal("expected no match for unknown preset")
	}
}

func TestNearestTarget_RejectsNonFinite(t *testing.T) {
	RegisterBuiltinTunings()
	if _, _, _, ok := nearestTarget("standard-e", math.NaN()); ok {
		t.Fatal("expected rejection of NaN frequency")
	}
	if _, _, _, ok := nearestTarget("standard-e", 0); ok {
		t.Fatal("expected rejection of non-positive frequency")
	}
}
