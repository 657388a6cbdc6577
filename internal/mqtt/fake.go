package mqtt

import (
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
)

// FakeSource delivers scripted readings for tests.
type FakeSource struct {
	readings chan analysis.SensorReading

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource preloaded with the given readings.
// The channel closes once the script is exhausted and Close is called.
func NewFakeSource(readings []analysis.SensorReading) *FakeSource {
	// Extra capacity so tests can Emit beyond the initial script without
	// blocking.
	ch := make(chan analysis.SensorReading, len(readings)+64)
	for _, r := range readings {
		ch <- r
	}
	return &FakeSource{readings: ch}
}

// Readings returns the scripted readings channel.
func (f *FakeSource) Readings() <-chan analysis.SensorReading {
	return f.readings
}

// Emit appends one more reading to the script.
func (f *FakeSource) Emit(r analysis.SensorReading) {
	f.readings <- r
}

// Close marks the source closed and closes the channel.
func (f *FakeSource) Close() error {
	f.Closed = true
	close(f.readings)
	return nil
}

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Events contains all breath-event messages that were published.
	Events []EventMessage

	// EventPayloads contains the JSON payloads for event messages.
	EventPayloads [][]byte

	// Metrics contains all metrics messages that were published.
	Metrics []MetricsMessage

	// MetricsPayloads contains the JSON payloads for metrics messages.
	MetricsPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishEvent and
	// PublishMetrics.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishEvent records the breath-event message.
func (f *FakePublisher) PublishEvent(msg EventMessage) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, msg)

	payload, err := FormatEventPayload(msg)
	if err != nil {
		return err
	}
	f.EventPayloads = append(f.EventPayloads, payload)

	return nil
}

// PublishMetrics records the metrics message.
func (f *FakePublisher) PublishMetrics(msg MetricsMessage) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Metrics = append(f.Metrics, msg)

	payload, err := FormatMetricsPayload(msg)
	if err != nil {
		return err
	}
	f.MetricsPayloads = append(f.MetricsPayloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.EventPayloads = nil
	f.Metrics = nil
	f.MetricsPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
