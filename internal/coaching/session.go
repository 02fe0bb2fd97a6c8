package coaching

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"LTPCoach/internal/domain/models"
)

// ErrSessionNotFound is returned for an unknown or already ended session.
var ErrSessionNotFound = errors.New("coaching session not found")

// Session is one trader's live coaching context. The trade and mode stored
// here feed every rule evaluation for the session's symbol.
type Session struct {
	ID        string
	Symbol    string
	Mode      models.CoachMode
	Trade     *models.ActiveTrade
	StartedAt time.Time

	closers []func()
}

// Manager owns session lifecycle. Ending a session runs every closer
// registered on it, which is how voice cooldown state and stream
// subscriptions get released.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start opens a session for a symbol. Mode defaults to scan.
func (m *Manager) Start(symbol string, mode models.CoachMode, trade *models.ActiveTrade) *Session {
	if mode == "" {
		mode = models.ModeScan
	}
	if trade != nil {
		mode = models.ModeTrade
	}
	s := &Session{
		ID:        uuid.NewString(),
		Symbol:    models.NormalizeSymbol(symbol),
		Mode:      mode,
		Trade:     trade,
		StartedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a shallow copy of the session state, or ErrSessionNotFound.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

// Attach registers a cleanup to run when the session ends.
func (m *Manager) Attach(id string, closer func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.closers = append(s.closers, closer)
	return nil
}

// SetTrade records or clears the session's open trade and flips the mode
// accordingly.
func (m *Manager) SetTrade(id string, trade *models.ActiveTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Trade = trade
	if trade != nil {
		s.Mode = models.ModeTrade
	} else if s.Mode == models.ModeTrade {
		s.Mode = models.ModeFocus
	}
	return nil
}

// SetMode changes the session mode.
func (m *Manager) SetMode(id string, mode models.CoachMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Mode = mode
	return nil
}

// End removes the session and runs its closers. Idempotent: ending an
// unknown session returns ErrSessionNotFound but has no other effect.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	for _, c := range s.closers {
		c()
	}
	return nil
}

// Close ends every open session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range all {
		for _, c := range s.closers {
			c()
		}
	}
}

// SessionFor classifies wall-clock time into a market session bucket using
// US equity regular hours in Eastern time.
func SessionFor(t time.Time, loc *time.Location) models.MarketSession {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	mins := local.Hour()*60 + local.Minute()
	switch {
	case mins < 9*60+30:
		return models.SessionPreMarket
	case mins < 10*60+30:
		return models.SessionOpen
	case mins < 15*60:
		return models.SessionMidday
	case mins < 16*60:
		return models.SessionPowerHour
	default:
		return models.SessionAfterHours
	}
}
