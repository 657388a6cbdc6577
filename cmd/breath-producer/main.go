// Command breath-producer publishes a simulated breath-sensor stream to
// MQTT, for exercising the analyzer without hardware.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/mqtt"
	"github.com/Z3nt0/ROVOCS-web-sub000/internal/sim"
)

func main() {
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	topic := flag.String("topic", mqtt.TopicReadings, "Readings topic")
	sessionID := flag.String("session", "", "Session UUID (generated if empty)")
	cadence := flag.Duration("cadence", 2*time.Second, "Sampling interval")
	period := flag.Duration("period", 40*time.Second, "Breath cycle length")
	ambientTVOC := flag.Float64("ambient-tvoc", 50, "Ambient TVOC (ppb)")
	ambientECO2 := flag.Float64("ambient-eco2", 600, "Ambient eCO2 (ppm)")
	riseTVOC := flag.Float64("rise-tvoc", 30, "Exhalation TVOC rise over ambient")
	riseECO2 := flag.Float64("rise-eco2", 150, "Exhalation eCO2 rise over ambient")
	noise := flag.Float64("noise", 0.01, "Noise amplitude as a fraction of ambient")

	flag.Parse()

	id := *sessionID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		log.Fatalf("fatal: -session is not a UUID: %v", err)
	}

	if err := run(*broker, *topic, id, *cadence,
		sim.NewBreath(*cadence, *period, *ambientTVOC, *ambientECO2, *riseTVOC, *riseECO2, *noise)); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(broker, topic, sessionID string, cadence time.Duration, gen *sim.Breath) error {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("breath-producer").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Disconnect(1000)

	log.Printf("producing: session=%s topic=%s cadence=%v", sessionID, topic, cadence)

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case s := <-sigCh:
			log.Printf("received %v, stopping", s)
			return nil

		case <-ticker.C:
			tvoc, eco2 := gen.Next()
			payload, err := mqtt.FormatReading(analysis.SensorReading{
				SessionID:   sessionID,
				PrimaryVOC:  tvoc,
				EquivCO2:    eco2,
				Temperature: 21.5,
				Humidity:    42,
				Timestamp:   time.Now(),
			})
			if err != nil {
				log.Printf("format reading: %v", err)
				continue
			}

			pub := client.Publish(topic, 0, false, payload)
			if !pub.WaitTimeout(5 * time.Second) {
				log.Printf("publish timeout")
				continue
			}
			if err := pub.Error(); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}
}
