package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecliptia/aelira/internal/player"
	"github.com/ecliptia/aelira/internal/source"
)

type sessionUpdatePayload struct {
	Resuming *bool   `json:"resuming"`
	Timeout  *uint64 `json:"timeout"`
}

// updateSession handles PATCH /v4/sessions/{sessionId}: an echo of the
// requested resuming/timeout, once the session is confirmed to exist.
// Neither field changes server behavior — the original's resume window
// is "the process lifetime", always.
func (h *handlers) updateSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if _, ok := h.d.Sessions.Lookup(sessionID); !ok {
		writeError(c, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	var body sessionUpdatePayload
	_ = c.ShouldBindJSON(&body)

	resuming := false
	if body.Resuming != nil {
		resuming = *body.Resuming
	}
	timeout := uint64(60)
	if body.Timeout != nil {
		timeout = *body.Timeout
	}

	c.JSON(http.StatusOK, gin.H{"resuming": resuming, "timeout": timeout})
}

// listPlayers handles GET /v4/sessions/{sessionId}/players.
func (h *handlers) listPlayers(c *gin.Context) {
	sess, ok := h.d.Sessions.Lookup(c.Param("sessionId"))
	if !ok {
		writeError(c, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	c.JSON(http.StatusOK, sess.Players.List())
}

// getPlayer handles GET /v4/sessions/{sessionId}/players/{guildId},
// creating an idle player on first access just as get_or_create does.
func (h *handlers) getPlayer(c *gin.Context) {
	sess, ok := h.d.Sessions.Lookup(c.Param("sessionId"))
	if !ok {
		writeError(c, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	p := sess.Players.GetOrCreate(c.Param("guildId"))
	c.JSON(http.StatusOK, p)
}

type updatePlayerTrack struct {
	Encoded    *string `json:"encoded"`
	Identifier *string `json:"identifier"`
}

type playerUpdatePayload struct {
	Track        *updatePlayerTrack `json:"track"`
	EncodedTrack *string            `json:"encodedTrack"`
	Volume       *uint16            `json:"volume"`
	Paused       *bool              `json:"paused"`
	Voice        *player.VoiceState `json:"voice"`
}

// patchPlayer handles PATCH /v4/sessions/{sessionId}/players/{guildId}.
// It mirrors the original's two-phase lock discipline exactly: the
// direct mutations (voice reconnect, paused, volume, encoded track) run
// under Player's own lock via Apply; a bare track identifier is
// resolved against the source registry with no player lock held, then
// committed via ApplyResolvedTrack.
func (h *handlers) patchPlayer(c *gin.Context) {
	sess, ok := h.d.Sessions.Lookup(c.Param("sessionId"))
	if !ok {
		writeError(c, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	var body playerUpdatePayload
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	guildID := c.Param("guildId")
	p := sess.Players.GetOrCreate(guildID)

	upd := player.Update{
		Voice:        body.Voice,
		Paused:       body.Paused,
		Volume:       body.Volume,
		TrackEncoded: body.EncodedTrack,
	}
	if body.Track != nil {
		if body.Track.Encoded != nil {
			upd.TrackEncoded = body.Track.Encoded
		} else {
			upd.TrackIdentifier = body.Track.Identifier
		}
	}

	identifier, err := p.Apply(upd)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if identifier != "" {
		result := h.d.Sources.LoadTracks(c.Request.Context(), identifier, source.FileExists)
		resolvedTrack, ok := result.Data.(source.TrackData)
		if result.LoadType != source.LoadTypeTrack || !ok {
			writeError(c, http.StatusBadRequest, "Bad Request", "Track resolution failed")
			return
		}
		p.ApplyResolvedTrack(resolvedTrack)
	}

	c.JSON(http.StatusOK, p)
}

// deletePlayer handles DELETE /v4/sessions/{sessionId}/players/{guildId}.
func (h *handlers) deletePlayer(c *gin.Context) {
	sess, ok := h.d.Sessions.Lookup(c.Param("sessionId"))
	if !ok {
		writeError(c, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	if !sess.Players.Delete(c.Param("guildId")) {
		writeError(c, http.StatusNotFound, "Not Found", "Player not found")
		return
	}
	c.Status(http.StatusNoContent)
}
