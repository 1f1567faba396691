package pacer

import (
	"context"
	"crypto/rand"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/voice/crypto"
	"github.com/ecliptia/aelira/internal/voice/udp"
)

type sliceSource struct {
	frames [][]byte
	i      int
}

func (s *sliceSource) NextFrame() ([]byte, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

type fakeConn struct {
	ready   chan struct{}
	channel *udp.Channel
	cipher  *crypto.Cipher

	mu           sync.Mutex
	speakingLog  []bool
}

func (f *fakeConn) Ready() <-chan struct{} { return f.ready }

func (f *fakeConn) Snapshot() (uint32, *udp.Channel, *crypto.Cipher, bool) {
	return 0, f.channel, f.cipher, f.channel != nil && f.cipher != nil
}

func (f *fakeConn) SetSpeaking(speaking bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speakingLog = append(f.speakingLog, speaking)
}

func newDiscardLogger() logging.Logger {
	l, _ := logging.New(false, "fatal")
	return l
}

func newLoopbackChannel(t *testing.T) (*udp.Channel, *net.UDPConn) {
	t.Helper()
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	ch, err := udp.Dial(server.LocalAddr().(*net.UDPAddr), 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		ch.Close()
		server.Close()
	})
	return ch, server
}

func newCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := crypto.New(key)
	require.NoError(t, err)
	return c
}

func TestPacerSendsFramesThenSilenceOnEOF(t *testing.T) {
	channel, server := newLoopbackChannel(t)
	cipher := newCipher(t)

	ready := make(chan struct{})
	close(ready)
	conn := &fakeConn{ready: ready, channel: channel, cipher: cipher}
	source := &sliceSource{frames: [][]byte{{1, 2, 3}, {4, 5, 6}}}

	p := New(conn, source, newDiscardLogger())

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 2048)
		server.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			_, _, err := server.ReadFromUDP(buf)
			if err != nil {
				return
			}
			received++
			if received == 7 { // 2 real frames + 5 silence frames
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Run(ctx)
	require.NoError(t, err)

	<-done
	assert.Equal(t, 7, received)
	assert.Equal(t, []bool{true, false}, conn.speakingLog)
}

func TestPacerReturnsErrorOnStartupTimeout(t *testing.T) {
	conn := &fakeConn{ready: make(chan struct{})}
	source := &sliceSource{}
	p := New(conn, source, newDiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.Error(t, err)
}
