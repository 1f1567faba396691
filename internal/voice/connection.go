// Package voice glues the gateway, UDP and pacer components into one
// per-player voice connection, mirroring the original VoiceConnection.
package voice

import (
	"context"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/voice/gateway"
	"github.com/ecliptia/aelira/internal/voice/pacer"
)

// Connection owns one voice-gateway task for a player. Credentials
// (token/endpoint/sessionId) are fixed at construction: the Player layer
// is responsible for tearing down and rebuilding a Connection when any of
// them change (§4.J).
type Connection struct {
	creds  gateway.Credentials
	gw     *gateway.Gateway
	logger logging.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConnection prepares a Connection; call Start to dial the voice
// gateway.
func NewConnection(creds gateway.Credentials, logger logging.Logger) *Connection {
	return &Connection{
		creds:  creds,
		gw:     gateway.New(creds, logger),
		logger: logger.Component("Voice"),
		done:   make(chan struct{}),
	}
}

// Credentials returns the (token, endpoint, sessionId) this connection
// was built with, so callers can detect whether a PATCH actually changed
// them.
func (c *Connection) Credentials() gateway.Credentials {
	return c.creds
}

// Gateway exposes the underlying state machine, e.g. for a Pacer.
func (c *Connection) Gateway() *gateway.Gateway {
	return c.gw
}

// Start spawns the voice-gateway task. The task runs until ctx is
// cancelled, Stop is called, or the socket fails.
func (c *Connection) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func() {
		defer close(c.done)
		if err := c.gw.Run(runCtx); err != nil {
			c.logger.Infow("voice connection loop ended", "guild_id", c.creds.GuildID, "reason", err)
		}
	}()
}

// Stop signals the voice-gateway task to exit and waits for it.
func (c *Connection) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// NewPacer builds a Pacer bound to this connection's gateway.
func (c *Connection) NewPacer(source pacer.FrameSource, logger logging.Logger) *pacer.Pacer {
	return pacer.New(c.gw, source, logger)
}
