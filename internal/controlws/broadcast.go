package controlws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ecliptia/aelira/internal/session"
	"github.com/ecliptia/aelira/internal/stats"
)

// playerUpdateFrame is one player's position snapshot, fanned out once a
// second to every session that owns it.
type playerUpdateFrame struct {
	Op      string            `json:"op"`
	GuildID string            `json:"guildId"`
	State   playerUpdateState `json:"state"`
}

type playerUpdateState struct {
	Time      uint64 `json:"time"`
	Position  int64  `json:"position"`
	Connected bool   `json:"connected"`
	Ping      int64  `json:"ping"`
}

// statsFrame is the REST `/v4/stats` body with an `op` field added, the
// shape the original's 1 Hz task serializes for the `stats` op.
type statsFrame struct {
	Op string `json:"op"`
	stats.Stats
}

// RunBroadcastLoop publishes a `stats` frame and one `playerUpdate` frame
// per track-bearing player to every live session, once a second, until ctx
// is cancelled. It also keeps sampler's players/playingPlayers counters
// current, mirroring the original's single interval task in main.rs.
func RunBroadcastLoop(ctx context.Context, sessions *session.Manager, sampler *stats.Sampler) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			broadcastOnce(sessions, sampler)
		}
	}
}

func broadcastOnce(sessions *session.Manager, sampler *stats.Sampler) {
	all := sessions.All()

	var totalPlayers, playingPlayers uint32
	for _, sess := range all {
		players := sess.Players.List()
		totalPlayers += uint32(len(players))
		for _, p := range players {
			if p.IsPlaying() {
				playingPlayers++
			}
		}
	}
	sampler.SetPlayers(totalPlayers)
	sampler.SetPlayingPlayers(playingPlayers)

	statsPayload, err := json.Marshal(statsFrame{Op: "stats", Stats: sampler.Snapshot()})
	if err == nil {
		for _, sess := range all {
			sess.Send(statsPayload)
		}
	}

	for _, sess := range all {
		for _, p := range sess.Players.List() {
			hasTrack, state := p.PlaybackState()
			if !hasTrack {
				continue
			}
			frame, err := json.Marshal(playerUpdateFrame{
				Op:      "playerUpdate",
				GuildID: p.GuildID(),
				State: playerUpdateState{
					Time:      uint64(time.Now().UnixMilli()),
					Position:  state.Position,
					Connected: state.Connected,
					Ping:      state.Ping,
				},
			})
			if err != nil {
				continue
			}
			sess.Send(frame)
		}
	}
}
