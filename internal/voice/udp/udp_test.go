package udp

import (
	"crypto/rand"
	"net"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecliptia/aelira/internal/voice/crypto"
)

func newLoopbackCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := crypto.New(key)
	require.NoError(t, err)
	return c
}

func newLoopbackPair(t *testing.T) (*Channel, *net.UDPConn) {
	t.Helper()

	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)

	ch, err := Dial(server.LocalAddr().(*net.UDPAddr), 0xDEADBEEF)
	require.NoError(t, err)

	t.Cleanup(func() {
		ch.Close()
		server.Close()
	})

	return ch, server
}

func TestSendOpusAdvancesCountersAndWraps(t *testing.T) {
	ch, server := newLoopbackPair(t)
	cipher := newLoopbackCipher(t)

	err := ch.SendOpus([]byte("frame-one"), cipher)
	require.NoError(t, err)

	buf := make([]byte, 2048)
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	var pkt rtp.Packet
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	assert.Equal(t, uint16(0), pkt.SequenceNumber)
	assert.Equal(t, uint32(0), pkt.Timestamp)
	assert.Equal(t, uint32(0xDEADBEEF), pkt.SSRC)
	assert.EqualValues(t, rtpPayloadType, pkt.PayloadType)

	seq, ts, nonce := ch.Counters()
	assert.Equal(t, uint16(1), seq)
	assert.Equal(t, uint32(opusFrameSamples), ts)
	assert.Equal(t, uint32(1), nonce)

	err = ch.SendOpus([]byte("frame-two"), cipher)
	require.NoError(t, err)
	n, _, err = server.ReadFromUDP(buf)
	require.NoError(t, err)
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	assert.Equal(t, uint16(1), pkt.SequenceNumber)
	assert.Equal(t, uint32(opusFrameSamples), pkt.Timestamp)

	// Put every counter at the top of its width: the next send wraps all three to zero.
	ch.mu.Lock()
	ch.sequence, ch.timestamp, ch.nonce = 0xFFFF, 0xFFFFFFFF-opusFrameSamples+1, 0xFFFFFFFF
	ch.mu.Unlock()
	require.NoError(t, ch.SendOpus([]byte("frame-three"), cipher))
	seq, ts, nonce = ch.Counters()
	assert.Equal(t, uint16(0), seq)
	assert.Equal(t, uint32(0), ts)
	assert.Equal(t, uint32(0), nonce)
}

func TestSendOpusAppendsTrailingNonceCounter(t *testing.T) {
	ch, server := newLoopbackPair(t)
	cipher := newLoopbackCipher(t)

	payload := []byte("opus-payload-bytes")
	require.NoError(t, ch.SendOpus(payload, cipher))

	buf := make([]byte, 2048)
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	raw := buf[:n]
	trailer := raw[len(raw)-4:]
	assert.Equal(t, []byte{0, 0, 0, 0}, trailer, "first packet's nonce counter is 0")

	var pkt rtp.Packet
	require.NoError(t, pkt.Unmarshal(raw))
	ciphertextAndTrailer := raw[12:]
	assert.Greater(t, len(ciphertextAndTrailer), len(payload), "ciphertext carries a GCM tag plus the 4-byte trailer")
}

func TestDiscoverExternalAddressParsesProbeResponse(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer server.Close()

	ch, err := Dial(server.LocalAddr().(*net.UDPAddr), 42)
	require.NoError(t, err)
	defer ch.Close()

	done := make(chan struct{})
	var gotIP string
	var gotPort uint16
	go func() {
		defer close(done)
		probe := make([]byte, discoveryPacketLen)
		n, clientAddr, err := server.ReadFromUDP(probe)
		require.NoError(t, err)
		require.Equal(t, discoveryPacketLen, n)

		resp := make([]byte, discoveryPacketLen)
		resp[0], resp[1] = 0, 2 // type = 2 (response)
		resp[2], resp[3] = 0, 70
		copy(resp[8:], "203.0.113.7")
		resp[len(resp)-2] = byte(12345 >> 8)
		resp[len(resp)-1] = byte(12345)

		_, err = server.WriteToUDP(resp, clientAddr)
		require.NoError(t, err)
	}()

	gotIP, gotPort, err = ch.DiscoverExternalAddress()
	require.NoError(t, err)
	<-done

	assert.Equal(t, "203.0.113.7", gotIP)
	assert.Equal(t, uint16(12345), gotPort)
}
