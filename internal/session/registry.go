// Package session routes readings to per-session analyzers. Each active
// monitoring session owns one analysis.Analyzer; sessions are independent
// and an analyzer is only ever touched by the run loop goroutine.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/analysis"
)

// DefaultIdleExpiry is how long a session may go without a reading before
// its analyzer is evicted. Device-offline policy lives here, on the
// ingestion side, not in the engine.
const DefaultIdleExpiry = 10 * time.Minute

type entry struct {
	analyzer *analysis.Analyzer
	lastSeen time.Time
}

// Registry maps session IDs to analyzers, creating one on the first reading
// for an unknown session.
type Registry struct {
	cfg        analysis.Config
	idleExpiry time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	// Dropped counts readings rejected for an invalid session ID.
	dropped int
}

// NewRegistry creates a Registry that builds analyzers with the given
// engine config.
func NewRegistry(cfg analysis.Config, idleExpiry time.Duration) *Registry {
	if idleExpiry <= 0 {
		idleExpiry = DefaultIdleExpiry
	}
	return &Registry{
		cfg:        cfg,
		idleExpiry: idleExpiry,
		sessions:   make(map[string]*entry),
	}
}

// Route validates the reading's session ID and processes it on that
// session's analyzer, creating the analyzer if this is the session's first
// reading. A reading with an invalid UUID is counted and dropped; ok is
// false and the Output zero in that case.
func (g *Registry) Route(r analysis.SensorReading) (analysis.Output, bool) {
	if _, err := uuid.Parse(r.SessionID); err != nil {
		g.mu.Lock()
		g.dropped++
		g.mu.Unlock()
		return analysis.Output{}, false
	}

	g.mu.Lock()
	e, exists := g.sessions[r.SessionID]
	if !exists {
		e = &entry{analyzer: analysis.NewAnalyzer(g.cfg)}
		g.sessions[r.SessionID] = e
	}
	e.lastSeen = r.Timestamp
	g.mu.Unlock()

	// The analyzer itself is not locked: readings for one session arrive
	// strictly in order on the run loop goroutine.
	return e.analyzer.Process(r), true
}

// Get returns the analyzer for a session, or nil if none exists.
func (g *Registry) Get(sessionID string) *analysis.Analyzer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.sessions[sessionID]; ok {
		return e.analyzer
	}
	return nil
}

// End tears a session down. Discarding the analyzer is all teardown takes:
// there is no async work to cancel.
func (g *Registry) End(sessionID string) {
	g.mu.Lock()
	delete(g.sessions, sessionID)
	g.mu.Unlock()
}

// Expire evicts sessions whose last reading is older than the idle expiry
// relative to now, returning the evicted IDs.
func (g *Registry) Expire(now time.Time) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var evicted []string
	for id, e := range g.sessions {
		if now.Sub(e.lastSeen) > g.idleExpiry {
			delete(g.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Active returns the number of sessions currently tracked.
func (g *Registry) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Dropped returns the count of readings rejected for invalid session IDs.
func (g *Registry) Dropped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
