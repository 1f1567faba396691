package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/routeplanner"
	"github.com/ecliptia/aelira/internal/session"
	"github.com/ecliptia/aelira/internal/source"
	"github.com/ecliptia/aelira/internal/source/local"
	"github.com/ecliptia/aelira/internal/stats"
)

func newTestEngine(t *testing.T, password string) (*gin.Engine, *Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.New(false, "fatal")
	require.NoError(t, err)

	sources := source.NewManager()
	sources.Register(local.New())

	sessions := session.NewManager(sources, logger)

	d := &Deps{
		Sessions:     sessions,
		Sources:      sources,
		Stats:        stats.New(),
		RoutePlanner: routeplanner.NewManager(),
		Logger:       logger,
		Version:      "1.2.3",
		Password:     password,
	}
	return NewEngine(d), d
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestVersionReturnsBareSemver(t *testing.T) {
	engine, _ := newTestEngine(t, "")
	rec := doRequest(engine, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", rec.Body.String())
}

func TestAuthRejectsMismatchedPassword(t *testing.T) {
	engine, _ := newTestEngine(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/v4/info", nil)
	req.Header.Set("Authorization", "wrong")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAllowsMatchingPassword(t *testing.T) {
	engine, _ := newTestEngine(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/v4/info", nil)
	req.Header.Set("Authorization", "secret")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthIsSkippedWhenNoPasswordConfigured(t *testing.T) {
	engine, _ := newTestEngine(t, "")
	rec := doRequest(engine, http.MethodGet, "/v4/info", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionPlayerLifecycle(t *testing.T) {
	engine, d := newTestEngine(t, "")
	sess := d.Sessions.Create("42", "test-client", make(chan []byte, 8))

	// Unknown guild auto-creates an idle player.
	rec := doRequest(engine, http.MethodGet, "/v4/sessions/"+sess.ID+"/players/guild-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// It shows up in the list.
	rec = doRequest(engine, http.MethodGet, "/v4/sessions/"+sess.ID+"/players", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var players []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &players))
	assert.Len(t, players, 1)

	// Direct paused/volume mutation via PATCH.
	rec = doRequest(engine, http.MethodPatch, "/v4/sessions/"+sess.ID+"/players/guild-1", map[string]any{
		"paused": true,
		"volume": 50,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var patched map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, true, patched["paused"])
	assert.Equal(t, float64(50), patched["volume"])

	// Delete removes it.
	rec = doRequest(engine, http.MethodDelete, "/v4/sessions/"+sess.ID+"/players/guild-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(engine, http.MethodDelete, "/v4/sessions/"+sess.ID+"/players/guild-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayerEndpointsReportMissingSession(t *testing.T) {
	engine, _ := newTestEngine(t, "")
	rec := doRequest(engine, http.MethodGet, "/v4/sessions/does-not-exist/players", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/v4/sessions/does-not-exist/players", body.Path)
}

func TestPatchPlayerWithUnresolvableIdentifierReturnsBadRequest(t *testing.T) {
	engine, d := newTestEngine(t, "")
	sess := d.Sessions.Create("7", "test-client", make(chan []byte, 8))

	rec := doRequest(engine, http.MethodPatch, "/v4/sessions/"+sess.ID+"/players/guild-9", map[string]any{
		"track": map[string]any{"identifier": "nowhere-to-be-found"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSessionEchoesResumingAndTimeout(t *testing.T) {
	engine, d := newTestEngine(t, "")
	sess := d.Sessions.Create("1", "c", make(chan []byte, 8))

	rec := doRequest(engine, http.MethodPatch, "/v4/sessions/"+sess.ID, map[string]any{
		"resuming": true,
		"timeout":  120,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["resuming"])
	assert.Equal(t, float64(120), body["timeout"])
}

func TestEncodeDecodeTrackRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, "")

	info := map[string]any{
		"identifier": "abc123",
		"author":     "tester",
		"lengthMs":   1000,
		"isStream":   false,
		"positionMs": 0,
		"title":      "a track",
		"sourceName": "local",
	}
	raw, _ := json.Marshal(info)

	req := httptest.NewRequest(http.MethodGet, "/v4/encodetrack?track="+url.QueryEscape(string(raw)), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var encoded string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &encoded))
	assert.NotEmpty(t, encoded)

	rec = doRequest(engine, http.MethodGet, "/v4/decodetrack?encodedTrack="+encoded, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutePlannerStatusIsEmptyByDefault(t *testing.T) {
	engine, _ := newTestEngine(t, "")
	rec := doRequest(engine, http.MethodGet, "/v4/routeplanner/status", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStatsEndpointReturnsSnapshotShape(t *testing.T) {
	engine, _ := newTestEngine(t, "")
	rec := doRequest(engine, http.MethodGet, "/v4/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "memory")
	assert.Contains(t, body, "cpu")
	assert.Contains(t, body, "frameStats")
}
