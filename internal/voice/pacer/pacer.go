// Package pacer drives Opus frames onto the network at a fixed 20ms
// cadence, with burst catch-up when a tick is missed (§4.G).
package pacer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/voice/crypto"
	"github.com/ecliptia/aelira/internal/voice/udp"
)

const (
	frameInterval         = 20 * time.Millisecond
	startupPollInterval   = 100 * time.Millisecond
	startupBarrierTimeout = 5 * time.Second
	silenceFrameCount     = 5
)

var opusSilenceFrame = []byte{0xF8, 0xFF, 0xFE}

// ErrStartupTimedOut is returned when udp/secretKey never became
// available within the startup barrier.
var ErrStartupTimedOut = errors.New("pacer: voice connection did not become ready in time")

// FrameSource yields one Opus frame per call, returning io.EOF once the
// track is exhausted.
type FrameSource interface {
	NextFrame() ([]byte, error)
}

// Connection is the slice of the voice gateway the pacer needs: a
// readiness signal plus the udp/cipher pair it guards, and a way to
// announce SPEAKING transitions.
type Connection interface {
	Ready() <-chan struct{}
	Snapshot() (ssrc uint32, channel *udp.Channel, cipher *crypto.Cipher, ok bool)
	SetSpeaking(speaking bool)
}

// Pacer paces one track's Opus frames onto one voice connection.
type Pacer struct {
	conn   Connection
	source FrameSource
	logger logging.Logger
}

// New builds a Pacer. Each Player starts at most one at a time.
func New(conn Connection, source FrameSource, logger logging.Logger) *Pacer {
	return &Pacer{conn: conn, source: source, logger: logger.Component("AudioStream")}
}

// Run blocks until the source is exhausted, the connection fails, or ctx
// is cancelled.
func (p *Pacer) Run(ctx context.Context) error {
	channel, cipher, err := p.awaitReady(ctx)
	if err != nil {
		p.logger.Warnw("pacer startup barrier timed out")
		return err
	}

	started := false
	next := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := p.source.NextFrame()
		if err == io.EOF {
			if started {
				p.conn.SetSpeaking(false)
				p.sendSilence(ctx, channel, cipher)
			}
			return nil
		}
		if err != nil {
			p.logger.Errorw("pacer: reading next frame", "error", err)
			return err
		}

		if !started {
			p.conn.SetSpeaking(true)
			started = true
		}

		if err := channel.SendOpus(frame, cipher); err != nil {
			p.logger.Errorw("pacer: sending opus frame", "error", err)
			return err
		}

		next = next.Add(frameInterval)
		if sleep := time.Until(next); sleep > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
		// else: behind schedule, loop immediately — burst catch-up.
	}
}

// awaitReady polls (udp, secretKey) availability, preferring the
// connection's readiness signal and falling back to a bounded poll so a
// connection that reaches Ready just after the signal fires is not missed.
func (p *Pacer) awaitReady(ctx context.Context) (*udp.Channel, *crypto.Cipher, error) {
	if _, channel, cipher, ok := p.conn.Snapshot(); ok {
		return channel, cipher, nil
	}

	deadline := time.NewTimer(startupBarrierTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(startupPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-p.conn.Ready():
			if _, channel, cipher, ok := p.conn.Snapshot(); ok {
				return channel, cipher, nil
			}
		case <-poll.C:
			if _, channel, cipher, ok := p.conn.Snapshot(); ok {
				return channel, cipher, nil
			}
		case <-deadline.C:
			return nil, nil, ErrStartupTimedOut
		}
	}
}

func (p *Pacer) sendSilence(ctx context.Context, channel *udp.Channel, cipher *crypto.Cipher) {
	for i := 0; i < silenceFrameCount; i++ {
		if err := channel.SendOpus(opusSilenceFrame, cipher); err != nil {
			p.logger.Warnw("pacer: sending silence frame", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(frameInterval):
		}
	}
}
