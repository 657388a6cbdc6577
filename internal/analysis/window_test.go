package analysis

import (
	"testing"
	"time"
)

func reading(tvoc, eco2 float64, ts time.Time) SensorReading {
	return SensorReading{
		SessionID:   "test-session",
		PrimaryVOC:  tvoc,
		EquivCO2:    eco2,
		Temperature: 21.5,
		Humidity:    40,
		Timestamp:   ts,
	}
}

func TestWindowAbsorbAndRecent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewReadingWindow(5 * time.Minute)

	for i := 0; i < 5; i++ {
		w.Absorb(reading(float64(10+i), 600, start.Add(time.Duration(i)*2*time.Second)))
	}

	if w.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", w.Len())
	}

	last3 := w.Recent(3)
	if len(last3) != 3 {
		t.Fatalf("Recent(3): got %d readings, want 3", len(last3))
	}
	if last3[0].PrimaryVOC != 12 || last3[2].PrimaryVOC != 14 {
		t.Errorf("Recent(3) order: got %v..%v, want 12..14", last3[0].PrimaryVOC, last3[2].PrimaryVOC)
	}
}

func TestWindowRecentMoreThanHeld(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewReadingWindow(5 * time.Minute)
	w.Absorb(reading(10, 600, start))
	w.Absorb(reading(11, 600, start.Add(2*time.Second)))

	got := w.Recent(30)
	if len(got) != 2 {
		t.Errorf("Recent(30) with 2 held: got %d, want 2", len(got))
	}
}

func TestWindowPrunesByAge(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewReadingWindow(5 * time.Minute)

	// 10 minutes of readings at 2s cadence: only the last 5 minutes survive.
	var last time.Time
	for i := 0; i < 300; i++ {
		last = start.Add(time.Duration(i) * 2 * time.Second)
		w.Absorb(reading(50, 600, last))
	}

	cutoff := last.Add(-5 * time.Minute)
	for i, r := range w.Recent(w.Len()) {
		if r.Timestamp.Before(cutoff) {
			t.Errorf("reading %d at %v is older than cutoff %v", i, r.Timestamp, cutoff)
		}
	}
	// 5 minutes at 2s cadence plus the boundary reading.
	if w.Len() > 151 {
		t.Errorf("Len after pruning: got %d, want <= 151", w.Len())
	}
}

func TestWindowPruneAfterDropout(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewReadingWindow(5 * time.Minute)

	for i := 0; i < 20; i++ {
		w.Absorb(reading(50, 600, start.Add(time.Duration(i)*2*time.Second)))
	}
	// A single reading after a 10-minute gap evicts everything before it.
	w.Absorb(reading(50, 600, start.Add(10*time.Minute)))

	if w.Len() != 1 {
		t.Errorf("Len after gap: got %d, want 1", w.Len())
	}
}

func TestWindowAcceptsOutOfOrderTimestamps(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewReadingWindow(5 * time.Minute)

	w.Absorb(reading(10, 600, start.Add(4*time.Second)))
	w.Absorb(reading(11, 600, start.Add(2*time.Second))) // earlier, kept as-is

	got := w.Recent(2)
	if got[0].PrimaryVOC != 10 || got[1].PrimaryVOC != 11 {
		t.Errorf("arrival order not preserved: got %v, %v", got[0].PrimaryVOC, got[1].PrimaryVOC)
	}
}
