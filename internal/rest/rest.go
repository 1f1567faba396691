// Package rest assembles the HTTP surface (§4.L): bearer auth, the
// sessions/players CRUD, track encode/decode, info/stats, and the
// route-planner placeholder, all behind a gin.Engine.
package rest

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/routeplanner"
	"github.com/ecliptia/aelira/internal/session"
	"github.com/ecliptia/aelira/internal/source"
	"github.com/ecliptia/aelira/internal/stats"
)

// Deps is everything a handler needs, assembled once at startup.
type Deps struct {
	Sessions     *session.Manager
	Sources      *source.Manager
	Stats        *stats.Sampler
	RoutePlanner *routeplanner.Manager
	Logger       logging.Logger

	Version    string
	Password   string // empty disables auth, matching the original's Option<String>
}

// NewEngine builds the gin.Engine with every route wired, matching the
// original's warp filter tree.
func NewEngine(d *Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:    []string{"Authorization", "Content-Type", "User-Id", "Client-Name", "Session-Id"},
	}))

	h := &handlers{d: d}

	engine.GET("/version", h.version)

	v4 := engine.Group("/v4")
	v4.Use(h.auth)
	{
		v4.GET("/stats", h.trackRequest("/v4/stats"), h.statsHandler)
		v4.GET("/info", h.trackRequest("/v4/info"), h.info)
		v4.GET("/loadtracks", h.trackRequest("/v4/loadtracks"), h.loadTracks)
		v4.GET("/decodetrack", h.decodeTrack)
		v4.POST("/decodetracks", h.decodeTracks)
		v4.GET("/encodetrack", h.encodeTrack)
		v4.POST("/encodetracks", h.encodeTracks)

		v4.PATCH("/sessions/:sessionId", h.updateSession)
		v4.GET("/sessions/:sessionId/players", h.listPlayers)
		v4.GET("/sessions/:sessionId/players/:guildId", h.getPlayer)
		v4.PATCH("/sessions/:sessionId/players/:guildId", h.patchPlayer)
		v4.DELETE("/sessions/:sessionId/players/:guildId", h.deletePlayer)

		v4.GET("/routeplanner/status", h.routePlannerStatus)
		v4.POST("/routeplanner/free/address", h.routePlannerFreeAddress)
		v4.POST("/routeplanner/free/all", h.routePlannerFreeAll)
	}

	return engine
}

type handlers struct {
	d *Deps
}

// errorEnvelope is the `{timestamp,status,error,message,path}` body the
// original returns for every 4xx.
type errorEnvelope struct {
	Timestamp int64  `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func writeError(c *gin.Context, status int, errName, message string) {
	c.JSON(status, errorEnvelope{
		Timestamp: time.Now().UnixMilli(),
		Status:    status,
		Error:     errName,
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

// auth enforces the bearer password exactly as the original's with_auth
// does: no password configured means every request passes.
func (h *handlers) auth(c *gin.Context) {
	if h.d.Password == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != h.d.Password {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Missing or invalid Authorization header")
		c.Abort()
		return
	}
	c.Next()
}

// trackRequest logs each request to endpoint at debug level. No
// per-endpoint request counter is kept; /v4/stats reports live
// players/playingPlayers from the session registry.
func (h *handlers) trackRequest(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.d.Logger.Debugw("api request", "endpoint", endpoint)
		c.Next()
	}
}
