// Package mqtt provides the broker-facing seams of the analyzer daemon:
// a Source that delivers device readings and a Publisher for breath events,
// metrics, and system lifecycle messages. Both sides ship a real (paho)
// and a fake implementation.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
)

// Topics used by the daemon.
const (
	TopicReadings = "rovocs/breath/readings"
	TopicEvents   = "rovocs/breath/events"
	TopicMetrics  = "rovocs/breath/metrics"
	TopicSystem   = "rovocs/breath/system"
)

// Source delivers decoded sensor readings from the broker, one at a time,
// in arrival order.
type Source interface {
	// Readings returns the channel the run loop consumes. The channel is
	// closed when the source shuts down.
	Readings() <-chan analysis.SensorReading

	// Close unsubscribes and releases the connection.
	Close() error
}

// Publisher publishes analyzer outputs to the broker.
type Publisher interface {
	// PublishEvent sends a breath-event transition.
	// Returns error if publishing fails (should not crash the process).
	PublishEvent(msg EventMessage) error

	// PublishMetrics sends the metrics for a just-closed event.
	PublishMetrics(msg MetricsMessage) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventMessage pairs a session with a detector transition snapshot.
type EventMessage struct {
	SessionID  string
	Transition analysis.Transition
	Event      analysis.BreathEvent
}

// MetricsMessage carries the metrics computed for one closed event.
type MetricsMessage struct {
	SessionID  string
	ComputedAt time.Time
	Metrics    []analysis.BreathMetric
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// ReadingPayload is the wire format devices publish on TopicReadings.
type ReadingPayload struct {
	SessionID   string  `json:"session_id"`
	TVOC        float64 `json:"tvoc"`
	ECO2        float64 `json:"eco2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// ParseReading decodes a device payload into a SensorReading.
func ParseReading(data []byte) (analysis.SensorReading, error) {
	var p ReadingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return analysis.SensorReading{}, fmt.Errorf("decode reading: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return analysis.SensorReading{}, fmt.Errorf("parse reading timestamp: %w", err)
	}
	return analysis.SensorReading{
		SessionID:   p.SessionID,
		PrimaryVOC:  p.TVOC,
		EquivCO2:    p.ECO2,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Timestamp:   ts,
	}, nil
}

// FormatReading encodes a SensorReading into the device wire format.
// Used by the bundled producer.
func FormatReading(r analysis.SensorReading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		SessionID:   r.SessionID,
		TVOC:        r.PrimaryVOC,
		ECO2:        r.EquivCO2,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// EventPayload is the JSON envelope published on TopicEvents. Optional
// fields are pointers so absent values serialize as null, never as zero.
type EventPayload struct {
	Breath BreathPayload `json:"breath"`
}

// BreathPayload contains the breath-event details.
type BreathPayload struct {
	SessionID    string   `json:"session_id"`
	Transition   string   `json:"transition"`
	StartTime    string   `json:"start_time"`
	EndTime      *string  `json:"end_time"`
	PeakTime     *string  `json:"peak_time"`
	PeakTVOC     *float64 `json:"peak_tvoc"`
	PeakECO2     *float64 `json:"peak_eco2"`
	BaselineTVOC float64  `json:"baseline_tvoc"`
	BaselineECO2 float64  `json:"baseline_eco2"`
	Completed    bool     `json:"completed"`
}

// FormatEventPayload creates the JSON payload for a breath-event message.
func FormatEventPayload(msg EventMessage) ([]byte, error) {
	p := EventPayload{
		Breath: BreathPayload{
			SessionID:    msg.SessionID,
			Transition:   string(msg.Transition),
			StartTime:    msg.Event.StartTime.UTC().Format(time.RFC3339Nano),
			EndTime:      formatOptTime(msg.Event.EndTime),
			PeakTime:     formatOptTime(msg.Event.PeakTime),
			PeakTVOC:     msg.Event.PeakTVOC,
			PeakECO2:     msg.Event.PeakECO2,
			BaselineTVOC: msg.Event.BaselineTVOC,
			BaselineECO2: msg.Event.BaselineECO2,
			Completed:    msg.Event.Completed,
		},
	}
	return json.Marshal(p)
}

// MetricsPayload is the JSON envelope published on TopicMetrics.
type MetricsPayload struct {
	Metrics MetricsInner `json:"metrics"`
}

// MetricsInner contains the per-event metric list.
type MetricsInner struct {
	SessionID  string          `json:"session_id"`
	ComputedAt string          `json:"computed_at"`
	Items      []MetricPayload `json:"items"`
}

// MetricPayload is one channel's derived metrics. Optional quantities are
// pointers: a missing slope stays null rather than becoming 0.
type MetricPayload struct {
	Channel      string   `json:"channel"`
	Baseline     float64  `json:"baseline"`
	Peak         float64  `json:"peak"`
	PercentRise  float64  `json:"percent_rise"`
	TimeToPeakS  *float64 `json:"time_to_peak_s"`
	Slope        *float64 `json:"slope"`
	RecoveryS    *float64 `json:"recovery_time_s"`
	ThresholdVal *float64 `json:"threshold"`
}

// FormatMetricsPayload creates the JSON payload for a metrics message.
func FormatMetricsPayload(msg MetricsMessage) ([]byte, error) {
	inner := MetricsInner{
		SessionID:  msg.SessionID,
		ComputedAt: msg.ComputedAt.UTC().Format(time.RFC3339Nano),
		Items:      make([]MetricPayload, 0, len(msg.Metrics)),
	}
	for _, m := range msg.Metrics {
		inner.Items = append(inner.Items, MetricPayload{
			Channel:      string(m.Channel),
			Baseline:     m.Baseline,
			Peak:         m.Peak,
			PercentRise:  m.PercentRise,
			TimeToPeakS:  m.TimeToPeak,
			Slope:        m.Slope,
			RecoveryS:    m.RecoveryTime,
			ThresholdVal: m.Threshold,
		})
	}
	return json.Marshal(MetricsPayload{Metrics: inner})
}

// SystemPayload is the JSON envelope for simple system events that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

func formatOptTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
