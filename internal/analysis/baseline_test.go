package analysis

import (
	"testing"
	"time"
)

// constantStream returns n identical readings at the 2s cadence.
func constantStream(tvoc, eco2 float64, n int) []SensorReading {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]SensorReading, n)
	for i := range out {
		out[i] = reading(tvoc, eco2, start.Add(time.Duration(i)*2*time.Second))
	}
	return out
}

func feedEstimator(e *Estimator, w *ReadingWindow, readings []SensorReading, windowSize int) {
	for _, r := range readings {
		w.Absorb(r)
		e.Update(w.Recent(windowSize))
	}
}

func TestEstimatorNoUpdateWithInsufficientHistory(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)
	w := NewReadingWindow(cfg.Retention)

	feedEstimator(e, w, constantStream(50, 600, cfg.BaselineWindowSize-1), cfg.BaselineWindowSize)

	b := e.Baseline()
	if b.TVOC != 0 || b.ECO2 != 0 {
		t.Errorf("baseline updated with insufficient history: %+v", b)
	}
	if b.Stable {
		t.Error("baseline stable with insufficient history")
	}
}

func TestEstimatorConvergesOnConstantStream(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)
	w := NewReadingWindow(cfg.Retention)

	n := cfg.BaselineWindowSize + cfg.StabilityDuration
	feedEstimator(e, w, constantStream(50, 600, n), cfg.BaselineWindowSize)

	b := e.Baseline()
	if !b.Stable {
		t.Fatalf("baseline not stable after %d constant readings", n)
	}
	if b.TVOC != 50 {
		t.Errorf("TVOC baseline: got %v, want 50", b.TVOC)
	}
	if b.ECO2 != 600 {
		t.Errorf("ECO2 baseline: got %v, want 600", b.ECO2)
	}
}

func TestEstimatorNotStableOneUpdateEarly(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)
	w := NewReadingWindow(cfg.Retention)

	n := cfg.BaselineWindowSize + cfg.StabilityDuration - 1
	feedEstimator(e, w, constantStream(50, 600, n), cfg.BaselineWindowSize)

	if e.Stable() {
		t.Error("baseline stable one qualifying update early")
	}
}

func TestEstimatorCounterResetsOnDeviation(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)
	w := NewReadingWindow(cfg.Retention)

	// Almost stable, then a jump big enough to move the rolling mean by
	// more than the stability threshold.
	n := cfg.BaselineWindowSize + cfg.StabilityDuration - 2
	feedEstimator(e, w, constantStream(50, 600, n), cfg.BaselineWindowSize)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	jump := reading(200, 600, start.Add(time.Duration(n)*2*time.Second))
	w.Absorb(jump)
	e.Update(w.Recent(cfg.BaselineWindowSize))

	b := e.Baseline()
	if b.Counter != 0 {
		t.Errorf("counter after deviation: got %d, want 0", b.Counter)
	}
	if b.Stable {
		t.Error("baseline stable after deviation")
	}
	if b.TVOC == 50 {
		t.Error("mean should still be stored unconditionally after deviation")
	}
}

func TestEstimatorMeansStoredWhileUnstable(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)
	w := NewReadingWindow(cfg.Retention)

	feedEstimator(e, w, constantStream(50, 600, cfg.BaselineWindowSize), cfg.BaselineWindowSize)

	b := e.Baseline()
	if b.Stable {
		t.Error("stable after a single update")
	}
	if b.TVOC != 50 || b.ECO2 != 600 {
		t.Errorf("means not stored while unstable: %+v", b)
	}
}

func TestEstimatorZeroMeanIsNonQualifying(t *testing.T) {
	if qualifies(0, 10, 0.03) {
		t.Error("zero previous mean must not qualify")
	}
}

func TestStabilityStep(t *testing.T) {
	tests := []struct {
		name        string
		qualified   bool
		counter     int
		duration    int
		wantCounter int
		wantStable  bool
	}{
		{"first qualifying", true, 0, 10, 1, false},
		{"reaches duration", true, 9, 10, 10, true},
		{"past duration", true, 15, 10, 16, true},
		{"reset on deviation", false, 9, 10, 0, false},
		{"reset when already stable", false, 20, 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter, stable := stabilityStep(tt.qualified, tt.counter, tt.duration)
			if counter != tt.wantCounter {
				t.Errorf("counter: got %d, want %d", counter, tt.wantCounter)
			}
			if stable != tt.wantStable {
				t.Errorf("stable: got %v, want %v", stable, tt.wantStable)
			}
		})
	}
}
