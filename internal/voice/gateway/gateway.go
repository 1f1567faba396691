// Package gateway drives the voice-gateway WebSocket state machine
// (§4.F): IDENTIFY, HELLO, READY, SELECT_PROTOCOL, SESSION_DESCRIPTION and
// the independent heartbeat timer.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/voice/crypto"
	"github.com/ecliptia/aelira/internal/voice/udp"
)

// voice-gateway opcodes, per Discord's voice protocol.
const (
	opIdentify          = 0
	opSelectProtocol    = 1
	opReady             = 2
	opHeartbeat         = 3
	opSessionDesc       = 4
	opSpeaking          = 5
	opHello             = 8
)

const defaultHeartbeatInterval = 30 * time.Second

// State is an explicit point in the voice-gateway handshake, kept as data
// rather than inferred from which optional fields happen to be set.
type State int

const (
	StateConnecting State = iota
	StateAwaitReady
	StateAwaitSession
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitReady:
		return "await_ready"
	case StateAwaitSession:
		return "await_session"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Credentials identifies the voice session being established.
type Credentials struct {
	GuildID   string
	UserID    string
	SessionID string
	Token     string
	Endpoint  string
}

// Gateway owns one voice-gateway WebSocket connection and the handshake
// state it drives. Ssrc, Udp and SecretKey become readable once the
// connection reaches StateReady; Ready closes to broadcast that
// transition to any waiting pacer.
type Gateway struct {
	creds  Credentials
	logger logging.Logger

	mu      sync.Mutex
	state   State
	ssrc    uint32
	udp     *udp.Channel
	cipher  *crypto.Cipher
	ready   chan struct{}
	readyCl bool

	conn   *websocket.Conn
	outbox chan []byte

	// dialer and scheme are overridable by tests to avoid dialing real
	// TLS voice servers; production code leaves them at their defaults.
	dialer *websocket.Dialer
	scheme string
}

// New prepares a Gateway for creds; call Run to drive the connection.
func New(creds Credentials, logger logging.Logger) *Gateway {
	return &Gateway{
		creds:  creds,
		logger: logger.Component("Voice"),
		state:  StateConnecting,
		ready:  make(chan struct{}),
		outbox: make(chan []byte, 16),
		dialer: websocket.DefaultDialer,
		scheme: "wss",
	}
}

// State returns the current handshake state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Ready closes once SESSION_DESCRIPTION has completed; a pacer should
// select on it instead of polling.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Snapshot returns the ssrc/udp/cipher triple once available. ok is false
// until StateReady is reached.
func (g *Gateway) Snapshot() (ssrc uint32, channel *udp.Channel, cipher *crypto.Cipher, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ssrc, g.udp, g.cipher, g.state == StateReady
}

// SetSpeaking enqueues an op 5 SPEAKING frame.
func (g *Gateway) SetSpeaking(speaking bool) {
	g.mu.Lock()
	ssrc := g.ssrc
	g.mu.Unlock()

	flag := 0
	if speaking {
		flag = 1
	}
	g.enqueue(map[string]any{
		"op": opSpeaking,
		"d": map[string]any{
			"speaking": flag,
			"delay":    0,
			"ssrc":     ssrc,
		},
	})
}

func (g *Gateway) enqueue(payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		g.logger.Errorw("marshalling voice gateway frame", "error", err)
		return
	}
	select {
	case g.outbox <- b:
	default:
		g.logger.Warnw("voice gateway outbox full, dropping frame")
	}
}

// Run dials the voice gateway and drives its lifecycle until ctx is
// cancelled or the socket closes. It is meant to run as its own task, one
// per VoiceConnection.
func (g *Gateway) Run(ctx context.Context) error {
	url := fmt.Sprintf("%s://%s/?v=8", g.scheme, g.creds.Endpoint)
	g.logger.Debugw("connecting to voice gateway", "url", url)

	conn, _, err := g.dialer.DialContext(ctx, url, nil)
	if err != nil {
		g.logger.Errorw("voice gateway dial failed", "error", err)
		return fmt.Errorf("voice gateway: dial: %w", err)
	}
	g.conn = conn
	defer conn.Close()

	g.logger.Infow("voice gateway connected")
	g.sendIdentify()

	incoming := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go g.readLoop(incoming, readErrs)

	heartbeat := time.NewTicker(defaultHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			g.transitionTo(StateClosed)
			return ctx.Err()

		case <-heartbeat.C:
			g.enqueue(map[string]any{"op": opHeartbeat, "d": time.Now().UnixMilli()})

		case frame := <-g.outbox:
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				g.logger.Warnw("voice gateway write failed", "error", err)
			}

		case raw := <-incoming:
			if newInterval, ok := g.handleFrame(raw); ok {
				heartbeat.Reset(newInterval)
			}

		case err := <-readErrs:
			g.transitionTo(StateClosed)
			g.logger.Infow("voice gateway loop ended", "reason", err)
			return err
		}
	}
}

func (g *Gateway) readLoop(out chan<- []byte, errs chan<- error) {
	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}
		out <- data
	}
}

func (g *Gateway) sendIdentify() {
	g.enqueue(map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"server_id":  g.creds.GuildID,
			"user_id":    g.creds.UserID,
			"session_id": g.creds.SessionID,
			"token":      g.creds.Token,
		},
	})
}

func (g *Gateway) sendSelectProtocol(ip string, port uint16) {
	g.enqueue(map[string]any{
		"op": opSelectProtocol,
		"d": map[string]any{
			"protocol": "udp",
			"data": map[string]any{
				"address": ip,
				"port":    port,
				"mode":    "aead_aes256_gcm_rtpsize",
			},
		},
	})
}

type inboundFrame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// handleFrame applies one inbound opcode to the state machine. It returns
// a new heartbeat interval and true only for HELLO.
func (g *Gateway) handleFrame(raw []byte) (time.Duration, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		g.logger.Warnw("voice gateway: malformed frame", "error", err)
		return 0, false
	}

	switch frame.Op {
	case opHello:
		var d struct {
			HeartbeatInterval float64 `json:"heartbeat_interval"`
		}
		if err := json.Unmarshal(frame.D, &d); err != nil {
			g.logger.Warnw("voice gateway: malformed HELLO", "error", err)
			return 0, false
		}
		return time.Duration(d.HeartbeatInterval) * time.Millisecond, true

	case opReady:
		g.handleReady(frame.D)

	case opSessionDesc:
		g.handleSessionDescription(frame.D)
	}
	return 0, false
}

func (g *Gateway) handleReady(raw json.RawMessage) {
	var d struct {
		SSRC uint32 `json:"ssrc"`
		IP   string `json:"ip"`
		Port uint16 `json:"port"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		g.logger.Warnw("voice gateway: malformed READY", "error", err)
		return
	}

	g.mu.Lock()
	g.state = StateAwaitReady
	g.ssrc = d.SSRC
	g.mu.Unlock()

	dest, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", d.IP, d.Port))
	if err != nil {
		g.logger.Errorw("voice gateway: resolving voice server address", "error", err)
		return
	}

	channel, err := udp.Dial(dest, d.SSRC)
	if err != nil {
		g.logger.Errorw("voice gateway: opening udp channel", "error", err)
		return
	}

	extIP, extPort, err := channel.DiscoverExternalAddress()
	if err != nil {
		g.logger.Errorw("voice gateway: ip discovery failed", "error", err)
		return
	}
	g.logger.Debugw("udp socket ready", "external_ip", extIP, "external_port", extPort)

	g.mu.Lock()
	g.udp = channel
	g.state = StateAwaitSession
	g.mu.Unlock()

	g.sendSelectProtocol(extIP, extPort)
}

func (g *Gateway) handleSessionDescription(raw json.RawMessage) {
	var d struct {
		SecretKey []int `json:"secret_key"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		g.logger.Warnw("voice gateway: malformed SESSION_DESCRIPTION", "error", err)
		return
	}
	secretKey := make([]byte, len(d.SecretKey))
	for i, v := range d.SecretKey {
		secretKey[i] = byte(v)
	}

	cipher, err := crypto.New(secretKey)
	if err != nil {
		g.logger.Errorw("voice gateway: building cipher from secret key", "error", err)
		return
	}

	g.mu.Lock()
	g.cipher = cipher
	g.state = StateReady
	alreadyClosed := g.readyCl
	g.readyCl = true
	g.mu.Unlock()

	if !alreadyClosed {
		close(g.ready)
	}
	g.logger.Infow("voice crypto setup complete")
}

func (g *Gateway) transitionTo(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}
