package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecliptia/aelira/internal/track"
)

// decodeTrack handles GET /v4/decodetrack?encodedTrack=...
func (h *handlers) decodeTrack(c *gin.Context) {
	encoded := strings.ReplaceAll(c.Query("encodedTrack"), " ", "+")

	info, err := track.Decode(encoded)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to decode track: %v", err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// decodeTracks handles POST /v4/decodetracks with a JSON array body of
// encoded strings.
func (h *handlers) decodeTracks(c *gin.Context) {
	var encodedTracks []string
	if err := c.ShouldBindJSON(&encodedTracks); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	decoded := make([]track.Info, 0, len(encodedTracks))
	for _, encoded := range encodedTracks {
		encoded = strings.ReplaceAll(encoded, " ", "+")
		info, err := track.Decode(encoded)
		if err != nil {
			writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to decode track: %v", err))
			return
		}
		decoded = append(decoded, info)
	}
	c.JSON(http.StatusOK, decoded)
}

// encodeTrack handles GET /v4/encodetrack?track=<json TrackInfo>
func (h *handlers) encodeTrack(c *gin.Context) {
	var info track.Info
	if err := json.Unmarshal([]byte(c.Query("track")), &info); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to parse track info: %v", err))
		return
	}

	encoded, err := track.Encode(info)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to encode track: %v", err))
		return
	}
	c.JSON(http.StatusOK, encoded)
}

// encodeTracks handles POST /v4/encodetracks with a JSON array body of
// TrackInfo objects.
func (h *handlers) encodeTracks(c *gin.Context) {
	var infos []track.Info
	if err := c.ShouldBindJSON(&infos); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	encoded := make([]string, 0, len(infos))
	for _, info := range infos {
		enc, err := track.Encode(info)
		if err != nil {
			writeError(c, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to encode track: %v", err))
			return
		}
		encoded = append(encoded, enc)
	}
	c.JSON(http.StatusOK, encoded)
}
