package pitch

import (
	"math"
	"sync"
)

// TuningPreset names a set of target string frequencies, e.g. standard
// guitar tuning. NoteNames and Freqs are parallel slices, lowest string
// first.
type TuningPreset struct {
	ID        string
	Label     string
	NoteNames []string
	Freqs     []float64
}

// registry is a process-wide, append-only set of tuning presets. It is
// safe for concurrent reads and writes.
type registry struct {
	mu       sync.RWMutex
	presets  map[string]TuningPreset
	order    []string
}

var defaultRegistry = &registry{presets: make(map[string]TuningPreset)}

// AddTuning registers a tuning preset under id. Re-registering the same id
// with identical contents is a no-op; re-registering with different
// contents is an error, since presets are meant to be append-only and
// immutable once published.
func AddTuning(id, label string, noteNames []string, freqs []float64) error {
	if len(noteNames) == 0 || len(freqs) == 0 {
		return configErr("noteNames", noteNames, ErrEmptyTuningPreset)
	}
	if len(noteNames) != len(freqs) {
		return configErr("freqs", freqs, ErrTuningLengthMismatch)
	}

	seen := make(map[float64]bool, len(freqs))
	for _, f := range freqs {
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return configErr("freqs", f, ErrNonPositiveFreq)
		}
		if seen[f] {
			return configErr("freqs", f, ErrDuplicateFreq)
		}
		seen[f] = true
	}

	return defaultRegistry.add(TuningPreset{
		ID:        id,
		Label:     label,
		NoteNames: append([]string(nil), noteNames...),
		Freqs:     append([]float64(nil), freqs...),
	})
}

func (r *registry) add(p TuningPreset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.presets[p.ID]; ok {
		if presetsEqual(existing, p) {
			return nil
		}
		return configErr("id", p.ID, ErrPresetRedefined)
	}

	r.presets[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func presetsEqual(a, b TuningPreset) bool {
	if a.Label != b.Label || len(a.Freqs) != len(b.Freqs) {
		return false
	}
	for i := range a.Freqs {
		if a.Freqs[i] != b.Freqs[i] || a.NoteNames[i] != b.NoteNames[i] {
			return false
		}
	}
	return true
}

// GetTunings returns all registered presets in registration order.
func GetTunings() []TuningPreset {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	out := make([]TuningPreset, 0, len(defaultRegistry.order))
	for _, id := range defaultRegistry.order {
		out = append(out, defaultRegistry.presets[id])
	}
	return out
}

func getTuning(id string) (TuningPreset, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	p, ok := defaultRegistry.presets[id]
	return p, ok
}

// RegisterBuiltinTunings seeds the registry with the three built-in guitar
// tunings. It is idempotent and safe to call more than once.
func RegisterBuiltinTunings() {
	_ = AddTuning("standard-e", "Standard E",
		[]string{"E2", "A2", "D3", "G3", "B3", "E4"},
		[]float64{82.41, 110.00, 146.83, 196.00, 246.94, 329.63})

	_ = AddTuning("flat-e", "Half-step down (Eb)",
		[]string{"Eb2", "Ab2", "Db3", "Gb3", "Bb3", "Eb4"},
		[]float64{77.78, 103.83, 138.59, 185.00, 233.08, 311.13})

	_ = AddTuning("drop-d", "Drop D",
		[]string{"D2", "A2", "D3", "G3", "B3", "E4"},
		[]float64{73.42, 110.00, 146.83, 196.00, 246.94, 329.63})
}

// nearestTarget finds the preset's target closest in cents to freq, with
// ties broken toward the lower frequency. Returns ok=false if the preset is
// unknown or freq is non-positive/non-finite.
func nearestTarget(presetID string, freq float64) (note string, target float64, cents float64, ok bool) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return "", 0, 0, false
	}

	preset, found := getTuning(presetID)
	if !found {
		return "", 0, 0, false
	}

	bestIdx := -1
	bestAbsCents := math.Inf(1)
	bestCents := 0.0

	for i, t := range preset.Freqs {
		c := 1200 * math.Log2(freq/t)
		ac := math.Abs(c)
		if ac < bestAbsCents || (ac == bestAbsCents && t < preset.Freqs[bestIdx]) {
			bestAbsCents = ac
			bestCents = c
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return "", 0, 0, false
	}

	return preset.NoteNames[bestIdx], preset.Freqs[bestIdx], bestCents, true
}
