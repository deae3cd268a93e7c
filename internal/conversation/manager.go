package conversation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/planboard/internal/logging"
)

var (
	// ErrSessionNotFound means no session has the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID rejects ids outside [A-Za-z0-9_-]{1,128}.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Manager owns sessions by id.
type Manager struct {
	maxMessages int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager whose sessions cap history at
// maxMessages (0 is unbounded).
func NewManager(maxMessages int) *Manager {
	return &Manager{maxMessages: maxMessages, sessions: make(map[string]*Session)}
}

// New creates a session with a fresh id.
func (m *Manager) New() *Session {
	s := NewSession(uuid.NewString(), m.maxMessages)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// GetOrCreate returns the session for id, creating it when absent. An empty
// id creates a session with a fresh id.
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	if id == "" {
		return m.New(), nil
	}
	if !logging.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := NewSession(id, m.maxMessages)
	m.sessions[id] = s
	return s, nil
}

// Reset restores a session to its seed.
func (m *Manager) Reset(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// IDs returns every session id in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
