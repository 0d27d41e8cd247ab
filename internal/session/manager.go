package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager looks sessions up by id, creates defaults on first contact,
// and transparently resets sessions that expired idle or already
// completed — the external id survives the reset.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	persister  Persister
	idleExpiry time.Duration
	logger     *slog.Logger
}

func NewManager(ctx context.Context, persister Persister, idleExpiry time.Duration, logger *slog.Logger) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		persister:  persister,
		idleExpiry: idleExpiry,
		logger:     logger,
	}
	if persister != nil {
		recs, err := persister.LoadAll(ctx)
		if err != nil {
			logger.Warn("could not load persisted sessions, starting empty", "error", err)
			return m
		}
		for _, rec := range recs {
			m.sessions[rec.SessionID] = FromRecord(rec)
		}
		logger.Info("sessions loaded", "count", len(recs))
	}
	return m
}

// GetOrCreate returns the session for id, creating defaults when none
// exists and resetting stale or completed ones.
func (m *Manager) GetOrCreate(id string, now time.Time) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = New(id, now)
		m.sessions[id] = s
		return s
	}
	if m.expired(s, now) || s.Mode == ModeComplete {
		m.logger.Info("resetting session", "session_id", id, "mode", s.Mode)
		s = m.reset(id, now)
	}
	return s
}

// Reset discards a session's state and starts over under the same
// external id.
func (m *Manager) Reset(id string, now time.Time) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset(id, now)
}

func (m *Manager) reset(id string, now time.Time) *Session {
	s := New(id, now)
	m.sessions[id] = s
	return s
}

// Get returns the session for id without creating or resetting.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Update publishes the mutated session back to the map and persists it.
// Persistence failure is non-fatal: the in-memory state stays
// authoritative for the rest of the process lifetime.
func (m *Manager) Update(ctx context.Context, s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.persister == nil {
		return
	}
	if err := m.persister.Save(ctx, s.ToRecord()); err != nil {
		m.logger.Error("session persistence failed", "session_id", s.ID, "error", err)
	}
}

// ActiveCount reports how many sessions are currently held.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.idleExpiry > 0 && now.Sub(s.Metrics.LastMessageAt) > m.idleExpiry
}
