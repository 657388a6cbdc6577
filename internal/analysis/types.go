// Package analysis contains pure business logic for breath-signal analysis.
// This package has NO external dependencies (no MQTT, OS, or time.Sleep).
// Time is always taken from reading timestamps, never from the wall clock.
package analysis

import "time"

// Channel identifies one of the two concentration channels.
type Channel string

const (
	ChannelTVOC Channel = "TVOC"
	ChannelECO2 Channel = "ECO2"
)

// SensorReading is a single timestamped sample from the breath sensor.
// Readings are immutable once produced; the engine only reads them.
type SensorReading struct {
	SessionID   string
	PrimaryVOC  float64 // TVOC concentration (ppb)
	EquivCO2    float64 // equivalent CO2 concentration (ppm)
	Temperature float64 // informational only, not used in detection
	Humidity    float64 // informational only, not used in detection
	Timestamp   time.Time
}

// Baseline holds the rolling per-channel means and their stability state.
type Baseline struct {
	TVOC      float64
	ECO2      float64
	Counter   int // consecutive qualifying updates
	Stable    bool
	UpdatedAt time.Time
}

// BreathEvent is a completed exhalation event. While an event is open it
// lives inside the Detector; a BreathEvent value only escapes on close.
type BreathEvent struct {
	StartTime time.Time
	EndTime   *time.Time
	PeakTime  *time.Time
	PeakTVOC  *float64
	PeakECO2  *float64
	// Baseline values frozen at event start.
	BaselineTVOC float64
	BaselineECO2 float64
	Completed    bool
}

// BreathMetric holds derived quantities for one channel of a completed
// event. Computed once, immutable thereafter. Optional fields stay nil when
// their inputs are absent or would divide by zero.
type BreathMetric struct {
	Channel      Channel
	Baseline     float64
	Peak         float64
	PercentRise  float64
	TimeToPeak   *float64 // seconds
	Slope        *float64 // concentration units per second
	RecoveryTime *float64 // seconds
	Threshold    *float64 // reported recovery threshold value
}

// Transition describes what the detector did with a reading.
type Transition string

const (
	TransitionOpened Transition = "OPENED"
	TransitionPeak   Transition = "PEAK"
	TransitionClosed Transition = "CLOSED"
)

// Config holds all engine tuning parameters.
type Config struct {
	// Retention is the reading-window horizon relative to the newest
	// reading's timestamp.
	Retention time.Duration
	// BaselineWindowSize is how many readings the rolling mean covers.
	BaselineWindowSize int
	// StabilityThreshold is the max relative change between consecutive
	// means that still counts as a qualifying update.
	StabilityThreshold float64
	// StabilityDuration is the number of consecutive qualifying updates
	// required before the baseline is marked stable.
	StabilityDuration int
	// BreathThreshold is the relative rise over baseline that opens an event.
	BreathThreshold float64
	// RecoveryThreshold is the relative deviation under which an open event
	// closes.
	RecoveryThreshold float64
	// MetricRecoveryThreshold feeds the reported per-metric threshold value.
	// It shares a default with RecoveryThreshold but is configured
	// independently; the two must not be unified.
	MetricRecoveryThreshold float64
}

// DefaultConfig returns the engine defaults: 5 min retention, a 30-reading
// baseline window (~60 s at the 2 s cadence), 3% stability threshold held
// for 10 updates, 15% breath trigger, 5% recovery.
func DefaultConfig() Config {
	return Config{
		Retention:               5 * time.Minute,
		BaselineWindowSize:      30,
		StabilityThreshold:      0.03,
		StabilityDuration:       10,
		BreathThreshold:         0.15,
		RecoveryThreshold:       0.05,
		MetricRecoveryThreshold: 0.05,
	}
}
