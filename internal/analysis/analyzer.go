package analysis

// Output is what a single processed reading produced: any subset of a
// stable-baseline snapshot, an event transition, and metrics for a
// just-closed event.
type Output struct {
	// Baseline is set only while the baseline is stable.
	Baseline *Baseline
	// Transition is set when the detector opened, peak-updated, or closed
	// an event on this reading.
	Transition *Transition
	// Event is a snapshot of the event on any transition; Completed is true
	// only on a close.
	Event *BreathEvent
	// Metrics is non-empty only immediately after a close transition.
	Metrics []BreathMetric
}

// Analyzer orchestrates the engine for one monitoring session: window →
// baseline → detector → metrics, all mutated synchronously within Process.
// One Analyzer per session; instances share no state, so independent
// sessions may run on separate goroutines without locking.
type Analyzer struct {
	cfg        Config
	window     *ReadingWindow
	estimator  *Estimator
	detector   *Detector
	calculator *Calculator
}

// NewAnalyzer creates an Analyzer with the given config.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		window:     NewReadingWindow(cfg.Retention),
		estimator:  NewEstimator(cfg),
		detector:   NewDetector(cfg),
		calculator: NewCalculator(cfg),
	}
}

// Process absorbs one reading and returns whatever changed this tick. It
// never fails: malformed or implausible samples degrade to an empty Output
// rather than halting the stream.
func (a *Analyzer) Process(r SensorReading) Output {
	a.window.Absorb(r)

	// The detector compares the reading against the baseline as it stood
	// before this reading entered the rolling mean, so a triggering spike
	// never inflates the baseline it is measured against.
	before := a.estimator.Baseline()

	a.estimator.Update(a.window.Recent(a.cfg.BaselineWindowSize))

	var out Output

	if after := a.estimator.Baseline(); after.Stable {
		b := after
		out.Baseline = &b
	}

	transition, event := a.detector.Evaluate(r, before)
	out.Transition = transition
	out.Event = event
	if event != nil && event.Completed {
		out.Metrics = a.calculator.Compute(event)
	}
	return out
}

// Baseline returns the current baseline state.
func (a *Analyzer) Baseline() Baseline {
	return a.estimator.Baseline()
}

// EventOpen reports whether a breath event is currently in progress.
func (a *Analyzer) EventOpen() bool {
	return a.detector.Open()
}
