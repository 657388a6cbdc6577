// Command breath-analyzer consumes sensor readings from MQTT, runs the
// breath-signal analysis engine per session, and publishes detected events
// and metrics back to the broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/mqtt"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/session"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/status"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/web"
)

func main() {
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	readingsTopic := flag.String("readings-topic", mqtt.TopicReadings, "MQTT topic carrying device readings")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	idleExpiry := flag.Duration("idle-expiry", session.DefaultIdleExpiry, "Evict sessions idle longer than this")

	cfg := analysis.DefaultConfig()
	flag.DurationVar(&cfg.Retention, "retention", cfg.Retention, "Reading window retention horizon")
	flag.IntVar(&cfg.BaselineWindowSize, "baseline-window", cfg.BaselineWindowSize, "Readings per baseline mean")
	flag.Float64Var(&cfg.StabilityThreshold, "stability-threshold", cfg.StabilityThreshold, "Max relative mean change that still counts as stable")
	flag.IntVar(&cfg.StabilityDuration, "stability-duration", cfg.StabilityDuration, "Consecutive qualifying updates before stable")
	flag.Float64Var(&cfg.BreathThreshold, "breath-threshold", cfg.BreathThreshold, "Relative rise over baseline that opens an event")
	flag.Float64Var(&cfg.RecoveryThreshold, "recovery-threshold", cfg.RecoveryThreshold, "Relative deviation under which an event closes")

	flag.Parse()

	if err := run(*broker, *readingsTopic, *httpAddr, *heartbeat, *idleExpiry, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(broker, readingsTopic, httpAddr string, heartbeat, idleExpiry time.Duration, cfg analysis.Config) error {
	source, err := mqtt.NewRealSource(broker, readingsTopic)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	defer source.Close()

	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:             broker,
		HTTPAddr:           httpAddr,
		HeartbeatMs:        heartbeat.Milliseconds(),
		BaselineWindowSize: cfg.BaselineWindowSize,
		StabilityThreshold: cfg.StabilityThreshold,
		BreathThreshold:    cfg.BreathThreshold,
		RecoveryThreshold:  cfg.RecoveryThreshold,
	})

	registry := session.NewRegistry(cfg, idleExpiry)
	hub := web.NewHub()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: broker=%s topic=%s heartbeat=%v idle-expiry=%v", broker, readingsTopic, heartbeat, idleExpiry)

	var hbTick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		hbTick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(source, publisher, publisher, tracker, registry, hub, time.Now, hbTick, sigCh)
}

func runLoop(source mqtt.Source, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, registry *session.Registry, hub *web.Hub, now func() time.Time, hbTick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-hbTick:
			for _, id := range registry.Expire(now()) {
				log.Printf("session %s expired", id)
				tracker.RemoveSession(id)
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v sessions=%d readings=%d events=%d/%d",
				snap.Uptime().Truncate(time.Second), len(snap.Sessions),
				snap.Counts.Readings, snap.Counts.EventsOpened, snap.Counts.EventsClosed)
			hbEvent := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case r, ok := <-source.Readings():
			if !ok {
				log.Printf("reading source closed")
				return nil
			}
			processReading(r, publisher, tracker, registry, hub, now)
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// processReading routes one reading through the engine and publishes
// whatever the tick produced.
func processReading(r analysis.SensorReading, publisher mqtt.Publisher, tracker *status.Tracker, registry *session.Registry, hub *web.Hub, now func() time.Time) {
	out, ok := registry.Route(r)
	if !ok {
		log.Printf("dropping reading with invalid session id %q", r.SessionID)
		tracker.CountDropped()
		return
	}

	if a := registry.Get(r.SessionID); a != nil {
		b := a.Baseline()
		tracker.UpdateSession(status.SessionStatus{
			ID:           r.SessionID,
			BaselineTVOC: b.TVOC,
			BaselineECO2: b.ECO2,
			Stable:       b.Stable,
			EventOpen:    a.EventOpen(),
			LastReading:  r.Timestamp,
		})
	}

	if out.Transition != nil && out.Event != nil {
		msg := mqtt.EventMessage{
			SessionID:  r.SessionID,
			Transition: *out.Transition,
			Event:      *out.Event,
		}
		log.Printf("event: %s session=%s", *out.Transition, r.SessionID)
		if err := publisher.PublishEvent(msg); err != nil {
			log.Printf("publish event error: %v", err)
		}
		if payload, err := mqtt.FormatEventPayload(msg); err == nil {
			hub.Broadcast(payload)
		}
		tracker.CountTransition(
			*out.Transition == analysis.TransitionOpened,
			*out.Transition == analysis.TransitionClosed)
	}

	if len(out.Metrics) > 0 {
		msg := mqtt.MetricsMessage{
			SessionID:  r.SessionID,
			ComputedAt: now(),
			Metrics:    out.Metrics,
		}
		for _, m := range out.Metrics {
			log.Printf("metric: session=%s channel=%s rise=%.1f%%", r.SessionID, m.Channel, m.PercentRise)
		}
		if err := publisher.PublishMetrics(msg); err != nil {
			log.Printf("publish metrics error: %v", err)
		}
		if payload, err := mqtt.FormatMetricsPayload(msg); err == nil {
			hub.Broadcast(payload)
		}
		tracker.CountMetrics(len(out.Metrics))
	}
}
