package analysis

import "time"

// ReadingWindow is a bounded history of recent readings for one session.
// Entries older than the retention horizon relative to the newest reading
// are pruned on every absorb. Out-of-order timestamps are accepted as-is
// (no reordering): the source is an append-only sensor stream.
type ReadingWindow struct {
	retention time.Duration
	readings  []SensorReading
}

// NewReadingWindow creates a window with the given retention horizon.
func NewReadingWindow(retention time.Duration) *ReadingWindow {
	return &ReadingWindow{retention: retention}
}

// Absorb appends a reading and prunes entries older than the retention
// horizon relative to the newest reading's timestamp.
func (w *ReadingWindow) Absorb(r SensorReading) {
	w.readings = append(w.readings, r)
	w.prune()
}

func (w *ReadingWindow) prune() {
	newest := w.readings[len(w.readings)-1].Timestamp
	cutoff := newest.Add(-w.retention)

	// Readings arrive roughly in order, so scan from the front.
	i := 0
	for i < len(w.readings) && w.readings[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.readings = append(w.readings[:0], w.readings[i:]...)
	}
}

// Recent returns the last n readings in arrival order. If fewer than n
// readings are held, all of them are returned.
func (w *ReadingWindow) Recent(n int) []SensorReading {
	if n >= len(w.readings) {
		return w.readings
	}
	return w.readings[len(w.readings)-n:]
}

// Len returns the number of readings currently held.
func (w *ReadingWindow) Len() int {
	return len(w.readings)
}
