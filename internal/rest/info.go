package rest

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecliptia/aelira/internal/source"
)

// version handles GET /version, returning the bare semver string the
// way the original's version::version filter does.
func (h *handlers) version(c *gin.Context) {
	c.String(http.StatusOK, h.d.Version)
}

type versionInfo struct {
	Semver     string  `json:"semver"`
	Major      int     `json:"major"`
	Minor      int     `json:"minor"`
	Patch      int     `json:"patch"`
	Prerelease *string `json:"prerelease"`
	Build      *string `json:"build"`
}

type gitInfo struct {
	Branch     string `json:"branch"`
	Commit     string `json:"commit"`
	CommitTime int64  `json:"commitTime"`
}

type runtimeInfo struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

type voiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type infoResponse struct {
	Version        versionInfo `json:"version"`
	BuildTime      int64       `json:"buildTime"`
	Git            gitInfo     `json:"git"`
	Go             runtimeInfo `json:"go"`
	Voice          voiceInfo   `json:"voice"`
	SourceManagers []string    `json:"sourceManagers"`
	Filters        []string    `json:"filters"`
	Plugins        []string    `json:"plugins"`
}

// info handles GET /v4/info, mirroring the original's info::handler
// shape (with the language-specific `rust` stanza renamed to `go`, and
// sourceManagers/filters reflecting what this gateway actually carries).
func (h *handlers) info(c *gin.Context) {
	parts := strings.SplitN(h.d.Version, ".", 3)
	major, minor, patch := 0, 0, 0
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		patch, _ = strconv.Atoi(parts[2])
	}

	c.JSON(http.StatusOK, infoResponse{
		Version:        versionInfo{Semver: h.d.Version, Major: major, Minor: minor, Patch: patch},
		BuildTime:      -1,
		Git:            gitInfo{Branch: "unknown", Commit: "unknown", CommitTime: -1},
		Go:             runtimeInfo{Version: runtime.Version(), OS: runtime.GOOS, Arch: runtime.GOARCH},
		Voice:          voiceInfo{Name: "aelira-voice", Version: "1.0.0"},
		SourceManagers: []string{"local"},
		Filters:        []string{},
		Plugins:        []string{},
	})
}

// statsHandler handles GET /v4/stats.
func (h *handlers) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.d.Stats.Snapshot())
}

// loadTracks handles GET /v4/loadtracks?identifier=...
func (h *handlers) loadTracks(c *gin.Context) {
	identifier := c.Query("identifier")
	result := h.d.Sources.LoadTracks(c.Request.Context(), identifier, source.FileExists)
	c.JSON(http.StatusOK, result)
}
