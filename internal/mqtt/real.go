package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
)

// sourceChanCapacity bounds how far the run loop may fall behind before
// readings are dropped. At the 2 s cadence this is over a minute of slack.
const sourceChanCapacity = 64

// RealSource subscribes to the readings topic on an actual MQTT broker.
type RealSource struct {
	client   paho.Client
	readings chan analysis.SensorReading
}

// NewRealSource connects to the broker and subscribes to the given topic.
func NewRealSource(broker, topic string) (*RealSource, error) {
	s := &RealSource{
		readings: make(chan analysis.SensorReading, sourceChanCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("breath-analyzer").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	sub := s.client.Subscribe(topic, 1, s.handleMessage)
	if !sub.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("subscribe timeout")
	}
	if err := sub.Error(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return s, nil
}

func (s *RealSource) handleMessage(_ paho.Client, msg paho.Message) {
	reading, err := ParseReading(msg.Payload())
	if err != nil {
		log.Printf("mqtt: ignoring malformed reading: %v", err)
		return
	}

	select {
	case s.readings <- reading:
	default:
		log.Printf("mqtt: reading channel full, dropping sample for session %s", reading.SessionID)
	}
}

// Readings returns the channel carrying decoded readings.
func (s *RealSource) Readings() <-chan analysis.SensorReading {
	return s.readings
}

// Close disconnects from the broker and closes the readings channel.
func (s *RealSource) Close() error {
	s.client.Disconnect(1000)
	close(s.readings)
	return nil
}

// IsConnected reports whether the broker connection is active.
func (s *RealSource) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down, messages are held in a bounded replay queue and resent on reconnect.
type RealPublisher struct {
	client paho.Client

	mu    sync.Mutex
	queue *replayQueue
}

// publisherQueueLimit bounds the offline replay queue.
const publisherQueueLimit = 256

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{
		queue: newReplayQueue(publisherQueueLimit),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("breath-analyzer-pub").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect resends any messages queued while the connection was down.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	backlog, evicted := p.queue.drain()
	p.mu.Unlock()

	if len(backlog) == 0 {
		return
	}
	if evicted > 0 {
		log.Printf("mqtt: replay queue overflowed while offline, %d messages lost", evicted)
	}
	log.Printf("mqtt: replaying %d queued messages", len(backlog))
	for _, msg := range backlog {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("mqtt: replay to %s failed", msg.topic)
		}
	}
}

// PublishEvent sends a breath-event transition to the broker.
func (p *RealPublisher) PublishEvent(msg EventMessage) error {
	payload, err := FormatEventPayload(msg)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	// QoS 1 (at-least-once): events are the primary output.
	return p.publish(TopicEvents, 1, false, payload)
}

// PublishMetrics sends computed metrics to the broker.
func (p *RealPublisher) PublishMetrics(msg MetricsMessage) error {
	payload, err := FormatMetricsPayload(msg)
	if err != nil {
		return fmt.Errorf("format metrics payload: %w", err)
	}
	return p.publish(TopicMetrics, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.queue.enqueue(queuedPublish{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// IsConnected reports whether the broker connection is active.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}
