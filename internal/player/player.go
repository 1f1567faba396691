// Package player implements a per-guild Player and the PlayerMap a
// Session owns (§4.J): play/pause/volume state, the voice connection a
// PATCH can (re)establish, and the single Pacer driving audio onto it.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ecliptia/aelira/internal/audio"
	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/source"
	"github.com/ecliptia/aelira/internal/track"
	"github.com/ecliptia/aelira/internal/voice"
	"github.com/ecliptia/aelira/internal/voice/gateway"
)

// StreamLoader resolves a track identifier to a readable byte stream —
// the slice of source.Manager (or a single source.Source) a Player needs
// to start playback, without depending on the whole registry.
type StreamLoader interface {
	LoadStream(ctx context.Context, identifier string) (io.ReadCloser, error)
}

// TrackData is the `track` field of a Player: the encoded blob plus its
// decoded info.
type TrackData struct {
	Encoded string     `json:"encoded"`
	Info    track.Info `json:"info"`
}

// VoiceState is the voice server credentials a PATCH supplies, matching
// the Discord-style voiceUpdate payload.
type VoiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// State is the playback-position snapshot returned on every Player
// response.
type State struct {
	Time      uint64 `json:"time"`
	Position  int64  `json:"position"`
	Connected bool   `json:"connected"`
	Ping      int64  `json:"ping"`
}

// Player is one guild's playback slot within a Session.
type Player struct {
	mu sync.Mutex

	guildID string
	track   *TrackData
	volume  uint16
	paused  bool
	state   State
	voice   *VoiceState

	connection *voice.Connection
	cancelPlay context.CancelFunc

	userID  string
	streams StreamLoader
	logger  logging.Logger
}

// New builds an idle player for guildID, matching the original's
// Player::new defaults. streams resolves a track's identifier to a
// readable stream when playback starts.
func New(guildID, userID string, streams StreamLoader, logger logging.Logger) *Player {
	return &Player{
		guildID: guildID,
		userID:  userID,
		streams: streams,
		volume:  100,
		state:   State{Ping: -1},
		logger:  logger.Component("Player"),
	}
}

// snapshot is the JSON shape returned for a Player, matching the
// original's camelCase Player serialization.
type snapshot struct {
	GuildID string      `json:"guildId"`
	Track   *TrackData  `json:"track"`
	Volume  uint16      `json:"volume"`
	Paused  bool        `json:"paused"`
	State   State       `json:"state"`
	Voice   *VoiceState `json:"voice"`
}

// MarshalJSON renders the Lavalink-shaped Player response.
func (p *Player) MarshalJSON() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return json.Marshal(snapshot{
		GuildID: p.guildID,
		Track:   p.track,
		Volume:  p.volume,
		Paused:  p.paused,
		State:   p.state,
		Voice:   p.voice,
	})
}

// GuildID returns the player's guild.
func (p *Player) GuildID() string { return p.guildID }

// PlaybackState reports whether a track is currently loaded and the
// position snapshot to publish for it, for the 1 Hz playerUpdate
// broadcast — the original only emits playerUpdate for players whose
// track is set.
func (p *Player) PlaybackState() (hasTrack bool, state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track != nil, p.state
}

// IsPlaying reports whether this player has a track loaded and is not
// paused, for the 1 Hz stats sampler's playingPlayers count.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track != nil && !p.paused
}

// Update is the set of fields a PATCH may carry; nil means "leave
// unchanged", matching the original's Option<T> payload fields.
type Update struct {
	Voice           *VoiceState
	Paused          *bool
	Volume          *uint16
	TrackEncoded    *string
	TrackIdentifier *string
}

// Apply performs the direct (non-identifier) mutations a PATCH carries:
// voice (re)connection, paused/volume assignment, and a directly encoded
// track. If upd names a bare identifier with no encoded blob, Apply
// leaves the track untouched and returns the identifier for the caller
// to resolve via the source registry and re-apply as a resolved track
// (§4.L's lock-release discipline — resolution must not hold the player
// lock).
func (p *Player) Apply(upd Update) (identifierToResolve string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if upd.Voice != nil {
		if p.shouldReconnectLocked(*upd.Voice) {
			p.connectLocked(*upd.Voice)
		}
	}

	if upd.Paused != nil {
		p.paused = *upd.Paused
	}
	if upd.Volume != nil {
		p.volume = *upd.Volume
	}

	if upd.TrackEncoded != nil {
		info, decErr := track.Decode(*upd.TrackEncoded)
		if decErr != nil {
			return "", fmt.Errorf("player: decoding track: %w", decErr)
		}
		p.setTrackLocked(TrackData{Encoded: *upd.TrackEncoded, Info: info})
		return "", nil
	}

	if upd.TrackIdentifier != nil {
		return *upd.TrackIdentifier, nil
	}

	return "", nil
}

// ApplyResolvedTrack installs a track resolved by the source registry and
// starts playback, mirroring the second locked section of the original's
// PATCH handler.
func (p *Player) ApplyResolvedTrack(data source.TrackData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setTrackLocked(TrackData{Encoded: data.Encoded, Info: data.Info})
}

func (p *Player) shouldReconnectLocked(v VoiceState) bool {
	if p.voice == nil {
		return true
	}
	return p.voice.Token != v.Token || p.voice.Endpoint != v.Endpoint || p.voice.SessionID != v.SessionID
}

// connectLocked tears down any existing voice connection and pacer, then
// dials a fresh one with the new credentials. The connection's lifetime
// is independent of any one request — it runs until Stop is called, so
// it is started against a background context, not a request's. Called
// with mu held.
func (p *Player) connectLocked(v VoiceState) {
	p.stopPlaybackLocked()
	if p.connection != nil {
		p.connection.Stop()
	}

	p.logger.Infow("connecting voice", "guild_id", p.guildID, "endpoint", v.Endpoint)

	creds := gateway.Credentials{
		GuildID:   p.guildID,
		UserID:    p.userID,
		SessionID: v.SessionID,
		Token:     v.Token,
		Endpoint:  v.Endpoint,
	}
	conn := voice.NewConnection(creds, p.logger)
	conn.Start(context.Background())

	p.connection = conn
	p.voice = &v
	p.state.Connected = false
}

// setTrackLocked installs a track and (re)starts playback against the
// current voice connection, if any. Called with mu held.
func (p *Player) setTrackLocked(data TrackData) {
	p.track = &data
	p.playLocked()
}

// playLocked cancels any in-flight pacer (at most one per player) and,
// if a voice connection exists, starts a new one streaming the current
// track. Mirrors the original's Player::play, replacing its polling
// startup barrier with the pacer's own Ready()-driven one.
func (p *Player) playLocked() {
	p.stopPlaybackLocked()

	if p.track == nil {
		p.logger.Warnw("play called with no track set", "guild_id", p.guildID)
		return
	}
	if p.connection == nil {
		p.logger.Warnw("play called with no voice connection", "guild_id", p.guildID)
		return
	}

	identifier := p.track.Info.Identifier
	declaredFormat := declaredFormatFor(identifier)

	playCtx, cancel := context.WithCancel(context.Background())
	p.cancelPlay = cancel

	go p.runPlayback(playCtx, p.connection, identifier, declaredFormat)
}

// declaredFormatFor picks the MIME-ish hint audio.NewProcessor dispatches
// on: a .wav file is decoded as PCM and transcoded, anything else is
// assumed WebM/Opus and passed straight through.
func declaredFormatFor(identifier string) string {
	if strings.EqualFold(filepath.Ext(identifier), ".wav") {
		return "audio/wav"
	}
	return "webm/opus"
}

// stopPlaybackLocked cancels the active pacer, if any. Called with mu
// held.
func (p *Player) stopPlaybackLocked() {
	if p.cancelPlay != nil {
		p.cancelPlay()
		p.cancelPlay = nil
	}
}

// runPlayback loads the stream for identifier from the local source,
// wraps it in an audio Processor and drives it through a Pacer. It owns
// no player-lock for its duration — only the brief Apply/setTrackLocked
// sections mutate shared state.
func (p *Player) runPlayback(ctx context.Context, conn *voice.Connection, identifier, declaredFormat string) {
	stream, err := p.streams.LoadStream(ctx, identifier)
	if err != nil {
		p.logger.Errorw("failed to load stream", "guild_id", p.guildID, "identifier", identifier, "error", err)
		return
	}
	defer stream.Close()

	proc, err := audio.NewProcessor(stream, declaredFormat)
	if err != nil {
		p.logger.Errorw("failed to build audio processor", "guild_id", p.guildID, "error", err)
		return
	}

	pc := conn.NewPacer(proc, p.logger)
	if err := pc.Run(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warnw("pacer stopped with error", "guild_id", p.guildID, "error", err)
	}
}
