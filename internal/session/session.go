// Package session implements the control-WebSocket session registry
// (§4.K): one Session per connected client, identified by a short
// opaque ID a client can later use to resume its player state across a
// reconnect.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/player"
)

// idLength matches the original's 16-character alphanumeric session ID.
const idLength = 16

// Session is one connected client: its identity, its outbound message
// channel, and the players it owns.
type Session struct {
	ID         string
	UserID     string
	ClientName string

	mu     sync.Mutex
	sender chan<- []byte

	Players *player.Map
}

// Send enqueues a message on the session's current outbound channel.
// Resume swaps this channel out from under a live Session, so Send
// always reads it under the mutex rather than capturing it once.
func (s *Session) Send(payload []byte) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()

	if sender == nil {
		return
	}
	select {
	case sender <- payload:
	default:
	}
}

func (s *Session) setSender(sender chan<- []byte) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Manager owns every live Session, keyed by its ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	streams player.StreamLoader
	logger  logging.Logger
}

// NewManager builds an empty session registry. streams is handed to
// every Session's player.Map so tracks can resolve to playable streams.
func NewManager(streams player.StreamLoader, logger logging.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		streams:  streams,
		logger:   logger.Component("Session"),
	}
}

// Create registers a brand-new Session with a freshly generated ID.
func (m *Manager) Create(userID, clientName string, sender chan<- []byte) *Session {
	id := generateID()

	s := &Session{
		ID:         id,
		UserID:     userID,
		ClientName: clientName,
		sender:     sender,
		Players:    player.NewMap(userID, m.streams, m.logger),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s
}

// Resume rebinds an existing session to a new outbound channel — a
// client reconnecting with a previously issued session ID keeps its
// players and voice connections intact.
func (m *Manager) Resume(sessionID string, newSender chan<- []byte) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.setSender(newSender)
	return s, true
}

// Lookup returns a live session by ID without mutating it.
func (m *Manager) Lookup(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// All returns every live session, for the stats/playerUpdate broadcast
// loop.
func (m *Manager) All() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// generateID builds a 16-character alphanumeric ID. The corpus carries
// no short-ID generator (the original uses rand::distr::Alphanumeric);
// google/uuid is already a direct dependency here, so a UUID's hex
// digits are reused as the alphanumeric alphabet rather than pulling in
// a new library for this alone.
func generateID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(raw) > idLength {
		raw = raw[:idLength]
	}
	return raw
}
