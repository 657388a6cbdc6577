package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
)

func TestParseReading(t *testing.T) {
	data := []byte(`{
		"session_id": "7f9c24e5-1a2b-4c3d-9e8f-0a1b2c3d4e5f",
		"tvoc": 123.45,
		"eco2": 612.5,
		"temperature": 21.7,
		"humidity": 43.2,
		"timestamp": "2026-03-01T09:00:02Z"
	}`)

	r, err := ParseReading(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SessionID != "7f9c24e5-1a2b-4c3d-9e8f-0a1b2c3d4e5f" {
		t.Errorf("session id: got %q", r.SessionID)
	}
	if r.PrimaryVOC != 123.45 {
		t.Errorf("tvoc: got %v, want 123.45", r.PrimaryVOC)
	}
	if r.EquivCO2 != 612.5 {
		t.Errorf("eco2: got %v, want 612.5", r.EquivCO2)
	}
	want := time.Date(2026, 3, 1, 9, 0, 2, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("timestamp: got %v, want %v", r.Timestamp, want)
	}
}

func TestParseReadingMalformed(t *testing.T) {
	if _, err := ParseReading([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := ParseReading([]byte(`{"timestamp":"yesterday"}`)); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestReadingRoundTrip(t *testing.T) {
	in := analysis.SensorReading{
		SessionID:   "s1",
		PrimaryVOC:  50.123456789, // full precision must survive
		EquivCO2:    600.000000001,
		Temperature: 22.5,
		Humidity:    41,
		Timestamp:   time.Date(2026, 3, 1, 9, 0, 2, 500000000, time.UTC),
	}

	data, err := FormatReading(in)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	out, err := ParseReading(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.PrimaryVOC != in.PrimaryVOC || out.EquivCO2 != in.EquivCO2 {
		t.Errorf("precision lost: got %v/%v", out.PrimaryVOC, out.EquivCO2)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("timestamp: got %v, want %v", out.Timestamp, in.Timestamp)
	}
}

func TestFormatEventPayloadOpenEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 1, 20, 0, time.UTC)
	peak := 60.0
	msg := EventMessage{
		SessionID:  "s1",
		Transition: analysis.TransitionOpened,
		Event: analysis.BreathEvent{
			StartTime:    start,
			PeakTVOC:     &peak,
			PeakTime:     &start,
			BaselineTVOC: 50,
			BaselineECO2: 600,
		},
	}

	payload, err := FormatEventPayload(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Absent optionals must serialize as explicit nulls.
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	breath := raw["breath"]
	if string(breath["end_time"]) != "null" {
		t.Errorf("end_time: got %s, want null", breath["end_time"])
	}
	if string(breath["peak_eco2"]) != "null" {
		t.Errorf("peak_eco2: got %s, want null", breath["peak_eco2"])
	}

	var parsed EventPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Breath.Transition != "OPENED" {
		t.Errorf("transition: got %q, want OPENED", parsed.Breath.Transition)
	}
	if parsed.Breath.BaselineTVOC != 50 {
		t.Errorf("baseline_tvoc: got %v, want 50", parsed.Breath.BaselineTVOC)
	}
	if parsed.Breath.PeakTVOC == nil || *parsed.Breath.PeakTVOC != 60 {
		t.Errorf("peak_tvoc: got %v, want 60", parsed.Breath.PeakTVOC)
	}
	if parsed.Breath.Completed {
		t.Error("open event marked completed")
	}
}

func TestFormatEventPayloadClosedEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 1, 20, 0, time.UTC)
	end := start.Add(10 * time.Second)
	peakAt := start.Add(4 * time.Second)
	peakTVOC, peakECO2 := 80.0, 720.0

	msg := EventMessage{
		SessionID:  "s1",
		Transition: analysis.TransitionClosed,
		Event: analysis.BreathEvent{
			StartTime:    start,
			EndTime:      &end,
			PeakTime:     &peakAt,
			PeakTVOC:     &peakTVOC,
			PeakECO2:     &peakECO2,
			BaselineTVOC: 50,
			BaselineECO2: 600,
			Completed:    true,
		},
	}

	payload, err := FormatEventPayload(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed EventPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Breath.EndTime == nil || *parsed.Breath.EndTime != "2026-03-01T09:01:30Z" {
		t.Errorf("end_time: got %v", parsed.Breath.EndTime)
	}
	if parsed.Breath.PeakTime == nil || *parsed.Breath.PeakTime != "2026-03-01T09:01:24Z" {
		t.Errorf("peak_time: got %v", parsed.Breath.PeakTime)
	}
	if !parsed.Breath.Completed {
		t.Error("closed event not marked completed")
	}
}

func TestFormatMetricsPayloadNullability(t *testing.T) {
	ttp := 4.0
	msg := MetricsMessage{
		SessionID:  "s1",
		ComputedAt: time.Date(2026, 3, 1, 9, 1, 30, 0, time.UTC),
		Metrics: []analysis.BreathMetric{
			{
				Channel:     analysis.ChannelTVOC,
				Baseline:    50,
				Peak:        80,
				PercentRise: 60,
				TimeToPeak:  &ttp,
				// Slope, RecoveryTime, Threshold deliberately absent.
			},
		},
	}

	payload, err := FormatMetricsPayload(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw struct {
		Metrics struct {
			Items []map[string]json.RawMessage `json:"items"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(raw.Metrics.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(raw.Metrics.Items))
	}
	item := raw.Metrics.Items[0]
	if string(item["slope"]) != "null" {
		t.Errorf("slope: got %s, want null", item["slope"])
	}
	if string(item["recovery_time_s"]) != "null" {
		t.Errorf("recovery_time_s: got %s, want null", item["recovery_time_s"])
	}
	if string(item["time_to_peak_s"]) != "4" {
		t.Errorf("time_to_peak_s: got %s, want 4", item["time_to_peak_s"])
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", parsed.System.Reason)
	}
	if parsed.System.Timestamp != "2026-03-01T09:00:00Z" {
		t.Errorf("timestamp: got %q", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"custom":true}}`)
	payload, err := FormatSystemPayload(SystemEvent{RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: got %s", payload)
	}
}

func TestFakeSourceDeliversInOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	script := []analysis.SensorReading{
		{SessionID: "s1", PrimaryVOC: 50, Timestamp: start},
		{SessionID: "s1", PrimaryVOC: 51, Timestamp: start.Add(2 * time.Second)},
	}
	src := NewFakeSource(script)
	src.Close()

	var got []analysis.SensorReading
	for r := range src.Readings() {
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("readings: got %d, want 2", len(got))
	}
	if got[0].PrimaryVOC != 50 || got[1].PrimaryVOC != 51 {
		t.Errorf("order: got %v, %v", got[0].PrimaryVOC, got[1].PrimaryVOC)
	}
	if !src.Closed {
		t.Error("Closed not set")
	}
}

func TestFakePublisherRecordsAndFails(t *testing.T) {
	f := NewFakePublisher()

	msg := EventMessage{SessionID: "s1", Transition: analysis.TransitionOpened}
	if err := f.PublishEvent(msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Events) != 1 || len(f.EventPayloads) != 1 {
		t.Errorf("recorded: %d events, %d payloads", len(f.Events), len(f.EventPayloads))
	}

	f.PublishError = errors.New("broker down")
	if err := f.PublishEvent(msg); err == nil {
		t.Error("expected injected error")
	}
	if len(f.Events) != 1 {
		t.Errorf("failed publish recorded: %d events", len(f.Events))
	}
}
