package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Sessions      []SessionJSON `json:"sessions"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// SessionJSON is the JSON representation of one session's engine state.
type SessionJSON struct {
	ID           string  `json:"id"`
	BaselineTVOC float64 `json:"baseline_tvoc"`
	BaselineECO2 float64 `json:"baseline_eco2"`
	Stable       bool    `json:"stable"`
	EventOpen    bool    `json:"event_open"`
	LastReading  string  `json:"last_reading"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the totals.
type CountsJSON struct {
	Readings        int `json:"readings"`
	ReadingsDropped int `json:"readings_dropped"`
	EventsOpened    int `json:"events_opened"`
	EventsClosed    int `json:"events_closed"`
	Metrics         int `json:"metrics"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker             string  `json:"broker"`
	HTTPAddr           string  `json:"http_addr"`
	HeartbeatMs        int64   `json:"heartbeat_ms"`
	BaselineWindowSize int     `json:"baseline_window_size"`
	StabilityThreshold float64 `json:"stability_threshold"`
	BreathThreshold    float64 `json:"breath_threshold"`
	RecoveryThreshold  float64 `json:"recovery_threshold"`
}

func buildInner(snap Snapshot) StatusInner {
	sessions := make([]SessionJSON, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions = append(sessions, SessionJSON{
			ID:           s.ID,
			BaselineTVOC: s.BaselineTVOC,
			BaselineECO2: s.BaselineECO2,
			Stable:       s.Stable,
			EventOpen:    s.EventOpen,
			LastReading:  s.LastReading.UTC().Format(time.RFC3339),
		})
	}

	return StatusInner{
		Sessions:      sessions,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Readings:        snap.Counts.Readings,
			ReadingsDropped: snap.Counts.ReadingsDropped,
			EventsOpened:    snap.Counts.EventsOpened,
			EventsClosed:    snap.Counts.EventsClosed,
			Metrics:         snap.Counts.Metrics,
		},
		Config: ConfigJSON{
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			BaselineWindowSize: snap.Config.BaselineWindowSize,
			StabilityThreshold: snap.Config.StabilityThreshold,
			BreathThreshold:    snap.Config.BreathThreshold,
			RecoveryThreshold:  snap.Config.RecoveryThreshold,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
