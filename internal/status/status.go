// Package status provides a thread-safe status tracker for the
// breath-analyzer daemon. It is read by the HTTP status server and embedded
// into MQTT system events.
package status

import (
	"sort"
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker             string
	HTTPAddr           string
	HeartbeatMs        int64
	BaselineWindowSize int
	StabilityThreshold float64
	BreathThreshold    float64
	RecoveryThreshold  float64
}

// Counts tracks totals since startup.
type Counts struct {
	Readings        int
	ReadingsDropped int
	EventsOpened    int
	EventsClosed    int
	Metrics         int
}

// SessionStatus is the latest engine state for one session.
type SessionStatus struct {
	ID           string
	BaselineTVOC float64
	BaselineECO2 float64
	Stable       bool
	EventOpen    bool
	LastReading  time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Sessions      []SessionStatus // sorted by ID
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]SessionStatus
	counts   Counts
	start    time.Time
	mqttUp   bool
	cfg      Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		sessions: make(map[string]SessionStatus),
		start:    startTime,
		cfg:      cfg,
	}
}

// UpdateSession records the latest engine state for a session.
// Called from the run loop on every routed reading.
func (t *Tracker) UpdateSession(s SessionStatus) {
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.counts.Readings++
	t.mu.Unlock()
}

// RemoveSession drops a session from the status view (ended or expired).
func (t *Tracker) RemoveSession(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// CountDropped records a reading rejected before routing.
func (t *Tracker) CountDropped() {
	t.mu.Lock()
	t.counts.ReadingsDropped++
	t.mu.Unlock()
}

// CountTransition bumps the opened/closed totals.
func (t *Tracker) CountTransition(opened, closed bool) {
	t.mu.Lock()
	if opened {
		t.counts.EventsOpened++
	}
	if closed {
		t.counts.EventsClosed++
	}
	t.mu.Unlock()
}

// CountMetrics records n metrics produced.
func (t *Tracker) CountMetrics(n int) {
	t.mu.Lock()
	t.counts.Metrics += n
	t.mu.Unlock()
}

// SetMQTTConnected sets the broker connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttUp = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	sessions := make([]SessionStatus, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	snap := Snapshot{
		Sessions:      sessions,
		Counts:        t.counts,
		StartTime:     t.start,
		MQTTConnected: t.mqttUp,
		Config:        t.cfg,
	}
	t.mu.RUnlock()

	sort.Slice(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].ID < snap.Sessions[j].ID
	})
	snap.Now = time.Now()
	return snap
}
