// Package routeplanner tracks addresses marked as failing via Mark (the
// REST surface only reads and clears them), and renders Lavalink's
// RoutePlannerStatus shape (§4.L). There
// is no actual IP rotation to plan here (the UDP layer always dials from
// the machine's default route) — this is the bookkeeping half of the
// interface real Lavalink clients expect to query.
package routeplanner

import (
	"sync"
	"time"
)

// FailingAddress is one banned address, in the exact camelCase Lavalink
// expects.
type FailingAddress struct {
	Address   string `json:"failingAddress"`
	Timestamp uint64 `json:"failingTimestamp"`
	Time      string `json:"failingTime"`
}

// IPBlock describes the (single, fixed) address block this planner
// manages.
type IPBlock struct {
	Type string `json:"type"`
	Size string `json:"size"`
}

// Details is the non-nil body of Status when at least one address is
// currently banned.
type Details struct {
	IPBlock          IPBlock          `json:"ipBlock"`
	FailingAddresses []FailingAddress `json:"failingAddresses"`
	RotateIndex      string           `json:"rotateIndex"`
	IPIndex          string           `json:"ipIndex"`
	CurrentAddress   string           `json:"currentAddress"`
}

// Status is the `/v4/routeplanner/status` response body. Both fields
// are nil (and the REST handler replies 204) when nothing is banned.
type Status struct {
	Class   *string  `json:"class"`
	Details *Details `json:"details"`
}

// Manager tracks banned addresses in memory, keyed by address with the
// Unix-millisecond timestamp they were banned at.
type Manager struct {
	mu     sync.Mutex
	banned map[string]uint64
}

// NewManager builds an empty route planner.
func NewManager() *Manager {
	return &Manager{banned: make(map[string]uint64)}
}

// Mark bans address as of nowMs (Unix milliseconds).
func (m *Manager) Mark(address string, nowMs uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned[address] = nowMs
}

// UnmarkAddress clears a single banned address.
func (m *Manager) UnmarkAddress(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.banned, address)
}

// UnmarkAllAddresses clears every banned address.
func (m *Manager) UnmarkAllAddresses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned = make(map[string]uint64)
}

var rotatingIPRoutePlanner = "RotatingIpRoutePlanner"

// GetStatus renders the current banned-address set as a Status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.banned) == 0 {
		return Status{}
	}

	failing := make([]FailingAddress, 0, len(m.banned))
	for addr, ts := range m.banned {
		failing = append(failing, FailingAddress{
			Address:   addr,
			Timestamp: ts,
			Time:      time.UnixMilli(int64(ts)).Format(time.RFC3339),
		})
	}

	return Status{
		Class: &rotatingIPRoutePlanner,
		Details: &Details{
			IPBlock:          IPBlock{Type: "Inet4Address", Size: "1"},
			FailingAddresses: failing,
			RotateIndex:      "0",
			IPIndex:          "0",
			CurrentAddress:   "0.0.0.0",
		},
	}
}
