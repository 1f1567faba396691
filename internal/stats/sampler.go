// Package stats samples process/runtime metrics into the Lavalink-shaped
// `/v4/stats` payload (§6) and the control-WebSocket `stats` frame.
package stats

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Memory mirrors Lavalink's memory stanza, in bytes.
type Memory struct {
	Free       uint64 `json:"free"`
	Used       uint64 `json:"used"`
	Allocated  uint64 `json:"allocated"`
	Reservable uint64 `json:"reservable"`
}

// CPU mirrors Lavalink's cpu stanza. SystemLoad is a real reading (see
// systemLoad in loadavg.go). AeliraLoad (the process's own CPU share) is
// hard-coded to 0 — Open Question (3): its correct computation is
// unspecified upstream, so this carries the value forward rather than
// guessing at one.
type CPU struct {
	Cores      int     `json:"cores"`
	SystemLoad float64 `json:"systemLoad"`
	AeliraLoad float64 `json:"aeliraLoad"`
}

// Stats is the `/v4/stats` response body and the payload of a `stats`
// control-WS frame (with `op:"stats"` added by the caller).
type Stats struct {
	Players        uint32      `json:"players"`
	PlayingPlayers uint32      `json:"playingPlayers"`
	Uptime         int64       `json:"uptime"`
	Memory         Memory      `json:"memory"`
	CPU            CPU         `json:"cpu"`
	FrameStats     interface{} `json:"frameStats"`
}

// Sampler tracks counters the REST/control-WS layers update (players,
// playingPlayers) and reports them alongside a fresh runtime snapshot on
// every Snapshot call.
type Sampler struct {
	startedAt      time.Time
	players        atomic.Uint32
	playingPlayers atomic.Uint32
}

// New builds a Sampler whose uptime is measured from this call.
func New() *Sampler {
	return &Sampler{startedAt: time.Now()}
}

// SetPlayers records the current total player count.
func (s *Sampler) SetPlayers(count uint32) { s.players.Store(count) }

// SetPlayingPlayers records how many players currently have an active
// track.
func (s *Sampler) SetPlayingPlayers(count uint32) { s.playingPlayers.Store(count) }

// Snapshot samples runtime memory/CPU-core counts and assembles a Stats
// payload.
func (s *Sampler) Snapshot() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Players:        s.players.Load(),
		PlayingPlayers: s.playingPlayers.Load(),
		Uptime:         time.Since(s.startedAt).Milliseconds(),
		Memory: Memory{
			Free:       m.HeapIdle,
			Used:       m.HeapInuse,
			Allocated:  m.HeapAlloc,
			Reservable: m.Sys,
		},
		CPU: CPU{
			Cores:      runtime.NumCPU(),
			SystemLoad: systemLoad(),
			AeliraLoad: 0,
		},
		FrameStats: nil,
	}
}
