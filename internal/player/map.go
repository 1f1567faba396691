package player

import (
	"sync"

	"github.com/ecliptia/aelira/internal/logging"
)

// Map is the per-session collection of Players, one per guild,
// mirroring the original's PlayerManager.
type Map struct {
	mu      sync.Mutex
	players map[string]*Player

	userID  string
	streams StreamLoader
	logger  logging.Logger
}

// NewMap builds an empty player map for one session. userID identifies
// the bot session to the voice gateway; streams resolves track
// identifiers to readable streams for every player this map creates.
func NewMap(userID string, streams StreamLoader, logger logging.Logger) *Map {
	return &Map{
		players: make(map[string]*Player),
		userID:  userID,
		streams: streams,
		logger:  logger,
	}
}

// GetOrCreate returns the existing player for guildID, creating an idle
// one if none exists yet.
func (m *Map) GetOrCreate(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := New(guildID, m.userID, m.streams, m.logger)
	m.players[guildID] = p
	return p
}

// Get looks up an existing player without creating one.
func (m *Map) Get(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// List returns every player currently tracked, for the `GET
// .../players` listing endpoint.
func (m *Map) List() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out
}

// Delete removes a player, stopping any in-flight playback and voice
// connection first. Reports whether a player existed.
func (m *Map) Delete(guildID string) bool {
	m.mu.Lock()
	p, ok := m.players[guildID]
	if ok {
		delete(m.players, guildID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	p.mu.Lock()
	p.stopPlaybackLocked()
	conn := p.connection
	p.connection = nil
	p.mu.Unlock()

	if conn != nil {
		conn.Stop()
	}
	return true
}
