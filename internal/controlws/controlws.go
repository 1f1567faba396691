// Package controlws implements the control WebSocket (§4.M): the
// per-client connection a Lavalink-style controller opens to receive
// `ready`, `stats`, and `playerUpdate` frames and to issue session/player
// mutations over the REST surface in parallel.
package controlws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers holds the shared dependencies a connection needs.
type Handlers struct {
	Sessions *session.Manager
	Password string
	Logger   logging.Logger
}

// readyFrame is the first frame ever sent on a connection.
type readyFrame struct {
	Op        string `json:"op"`
	Resumed   bool   `json:"resumed"`
	SessionID string `json:"sessionId"`
}

// Serve handles GET /v4/websocket: reads authorization/user-id/client-name
// and an optional session-id, resumes or creates a Session, then pumps
// that Session's outbound channel onto the socket until it closes.
func (h *Handlers) Serve(c *gin.Context) {
	auth := c.GetHeader("authorization")
	userID := c.GetHeader("user-id")
	clientName := c.GetHeader("client-name")
	sessionID := c.GetHeader("session-id")

	if h.Password != "" && auth != h.Password {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	if userID == "" || !isAllDigits(userID) {
		c.String(http.StatusBadRequest, "Invalid User ID")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	outbound := make(chan []byte, 256)

	var sess *session.Session
	resumed := false
	if sessionID != "" {
		if s, ok := h.Sessions.Resume(sessionID, outbound); ok {
			sess = s
			resumed = true
		}
	}
	if sess == nil {
		sess = h.Sessions.Create(userID, clientName, outbound)
	}

	h.Logger.Infow("control connection established",
		"clientName", clientName, "userId", userID, "sessionId", sess.ID, "resumed", resumed)

	ready, err := json.Marshal(readyFrame{Op: "ready", Resumed: resumed, SessionID: sess.ID})
	if err != nil {
		h.Logger.Errorw("failed to marshal ready frame", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, ready); err != nil {
		h.Logger.Warnw("failed to send ready frame", "error", err)
		return
	}

	done := make(chan struct{})
	go h.readLoop(conn, sess, done)
	h.writeLoop(conn, outbound, done)
}

// readLoop only watches for the client closing or erroring: this
// connection never accepts inbound control messages, mirroring the
// original's read side, which exists solely to detect disconnects.
func (h *Handlers) readLoop(conn *websocket.Conn, sess *session.Session, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Logger.Debugw("control connection closed", "sessionId", sess.ID, "error", err)
			return
		}
	}
}

// writeLoop forwards every payload enqueued on outbound to the socket
// until the read side observes a close, or the socket write itself fails.
func (h *Handlers) writeLoop(conn *websocket.Conn, outbound chan []byte, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-outbound:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Logger.Warnw("failed to write control frame", "error", err)
				return
			}
		}
	}
}

func isAllDigits(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
