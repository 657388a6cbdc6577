package analysis

import "math"

// Estimator maintains the rolling per-channel baseline and its stability
// debounce for one session.
type Estimator struct {
	windowSize         int
	stabilityThreshold float64
	stabilityDuration  int

	baseline    Baseline
	initialized bool
}

// NewEstimator creates an Estimator from the engine config.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		windowSize:         cfg.BaselineWindowSize,
		stabilityThreshold: cfg.StabilityThreshold,
		stabilityDuration:  cfg.StabilityDuration,
	}
}

// Update recomputes the rolling means from the given window. If the window
// holds fewer readings than the configured size, no update occurs and the
// baseline stays unstable. The new means are stored unconditionally; only
// the stable flag gates downstream consumers.
func (e *Estimator) Update(window []SensorReading) {
	if len(window) < e.windowSize {
		return
	}

	var sumTVOC, sumECO2 float64
	for _, r := range window {
		sumTVOC += r.PrimaryVOC
		sumECO2 += r.EquivCO2
	}
	n := float64(len(window))
	newTVOC := sumTVOC / n
	newECO2 := sumECO2 / n

	if !e.initialized {
		// First mean: nothing to compare against, counter starts at zero.
		e.initialized = true
		e.baseline.TVOC = newTVOC
		e.baseline.ECO2 = newECO2
		e.baseline.Counter = 0
		e.baseline.Stable = false
		e.baseline.UpdatedAt = window[len(window)-1].Timestamp
		return
	}

	tvocOK := qualifies(e.baseline.TVOC, newTVOC, e.stabilityThreshold)
	eco2OK := qualifies(e.baseline.ECO2, newECO2, e.stabilityThreshold)

	e.baseline.Counter, e.baseline.Stable = stabilityStep(
		tvocOK && eco2OK, e.baseline.Counter, e.stabilityDuration)
	e.baseline.TVOC = newTVOC
	e.baseline.ECO2 = newECO2
	e.baseline.UpdatedAt = window[len(window)-1].Timestamp
}

// qualifies reports whether the relative change from prev to next is within
// the stability threshold. A zero previous mean is a non-qualifying epoch
// (undefined relative change).
func qualifies(prev, next, threshold float64) bool {
	if prev == 0 {
		return false
	}
	return math.Abs(next-prev)/prev < threshold
}

// stabilityStep advances the stability counter. Pure function so the
// debounce is testable without the surrounding stream: a qualifying update
// increments the counter, a non-qualifying one resets it to zero, and
// stable is reached once the counter hits the required duration.
func stabilityStep(qualified bool, counter, duration int) (int, bool) {
	if !qualified {
		return 0, false
	}
	counter++
	return counter, counter >= duration
}

// Baseline returns a copy of the current baseline state.
func (e *Estimator) Baseline() Baseline {
	return e.baseline
}

// Stable reports whether the baseline has been marked stable.
func (e *Estimator) Stable() bool {
	return e.baseline.Stable
}
