package analysis

import (
	"math"
	"time"
)

// openEvent is the detector's Open-state payload. Peak bookkeeping lives
// here so there is no way to touch a peak while Idle.
type openEvent struct {
	startTime    time.Time
	baselineTVOC float64
	baselineECO2 float64
	peakTime     *time.Time
	peakTVOC     *float64
	peakECO2     *float64
}

// Detector is the per-session breath-event state machine: Idle when open is
// nil, Open otherwise. At most one event is tracked at a time; a breath-start
// condition while already Open is ignored, so overlapping breaths collapse
// into a single event until recovery.
type Detector struct {
	breathThreshold   float64
	recoveryThreshold float64
	open              *openEvent
}

// NewDetector creates a Detector from the engine config.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		breathThreshold:   cfg.BreathThreshold,
		recoveryThreshold: cfg.RecoveryThreshold,
	}
}

// Evaluate advances the state machine with one reading against the current
// baseline. On any transition it returns an event snapshot; the snapshot is
// marked Completed only on a close. No transition is attempted while the
// baseline is unstable and no event is open.
func (d *Detector) Evaluate(r SensorReading, baseline Baseline) (*Transition, *BreathEvent) {
	if d.open == nil {
		if !baseline.Stable {
			return nil, nil
		}
		if exceedsRise(r.PrimaryVOC, baseline.TVOC, d.breathThreshold) ||
			exceedsRise(r.EquivCO2, baseline.ECO2, d.breathThreshold) {
			d.open = &openEvent{
				startTime:    r.Timestamp,
				baselineTVOC: baseline.TVOC,
				baselineECO2: baseline.ECO2,
			}
			d.open.trackPeaks(r)
			tr := TransitionOpened
			return &tr, d.open.snapshot(nil)
		}
		return nil, nil
	}

	// Open: recovery check first, against the frozen baseline.
	if withinRecovery(r.PrimaryVOC, d.open.baselineTVOC, d.recoveryThreshold) &&
		withinRecovery(r.EquivCO2, d.open.baselineECO2, d.recoveryThreshold) {
		end := r.Timestamp
		ev := d.open.snapshot(&end)
		d.open = nil
		tr := TransitionClosed
		return &tr, ev
	}

	if d.open.trackPeaks(r) {
		tr := TransitionPeak
		return &tr, d.open.snapshot(nil)
	}
	return nil, nil
}

// snapshot copies the in-progress event into an exportable value. A non-nil
// end time finalizes it.
func (e *openEvent) snapshot(end *time.Time) *BreathEvent {
	return &BreathEvent{
		StartTime:    e.startTime,
		EndTime:      end,
		PeakTime:     e.peakTime,
		PeakTVOC:     e.peakTVOC,
		PeakECO2:     e.peakECO2,
		BaselineTVOC: e.baselineTVOC,
		BaselineECO2: e.baselineECO2,
		Completed:    end != nil,
	}
}

// trackPeaks updates per-channel peaks from the reading and reports whether
// any peak changed. PeakTime follows the primary channel only.
func (e *openEvent) trackPeaks(r SensorReading) bool {
	updated := false
	if e.peakTVOC == nil || r.PrimaryVOC > *e.peakTVOC {
		v := r.PrimaryVOC
		t := r.Timestamp
		e.peakTVOC = &v
		e.peakTime = &t
		updated = true
	}
	if e.peakECO2 == nil || r.EquivCO2 > *e.peakECO2 {
		v := r.EquivCO2
		e.peakECO2 = &v
		updated = true
	}
	return updated
}

// Open reports whether an event is currently in progress.
func (d *Detector) Open() bool {
	return d.open != nil
}

// exceedsRise reports whether value is more than threshold above baseline as
// a relative increase. A zero baseline never triggers (undefined ratio).
func exceedsRise(value, baseline, threshold float64) bool {
	if baseline == 0 {
		return false
	}
	return (value-baseline)/baseline > threshold
}

// withinRecovery reports whether value's absolute relative deviation from
// baseline is below threshold.
func withinRecovery(value, baseline, threshold float64) bool {
	if baseline == 0 {
		return false
	}
	return math.Abs(value-baseline)/baseline < threshold
}
