// Package udp owns the voice UDP socket: IP discovery and paced,
// encrypted RTP packet assembly (§4.E).
package udp

import (
	"bytes"
	"fmt"
	"net"
	"sync"

	"github.com/pion/rtp"

	"github.com/ecliptia/aelira/internal/voice/crypto"
)

const (
	// rtpPayloadType is Discord voice's "Opus" RTP payload type.
	rtpPayloadType = 0x78
	// opusFrameSamples is 960 samples (20ms at 48kHz), the per-packet
	// timestamp increment.
	opusFrameSamples = 960

	discoveryPacketLen = 74
)

// Channel is the per-connection UDP socket plus the monotonic counters
// that drive RTP header fields.
type Channel struct {
	mu sync.Mutex

	socket      *net.UDPConn
	destination *net.UDPAddr
	ssrc        uint32

	sequence  uint16
	timestamp uint32
	nonce     uint32
}

// Dial opens a UDP socket bound to an ephemeral local port and targeting
// the voice server's (ip, port), as reported by READY.
func Dial(destination *net.UDPAddr, ssrc uint32) (*Channel, error) {
	socket, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("voice udp: binding socket: %w", err)
	}
	return &Channel{socket: socket, destination: destination, ssrc: ssrc}, nil
}

// Close releases the underlying socket.
func (c *Channel) Close() error {
	return c.socket.Close()
}

// DiscoverExternalAddress performs Discord-style IP discovery: send a
// 74-byte probe, read back this session's external (ip, port) as seen by
// the voice server.
func (c *Channel) DiscoverExternalAddress() (ip string, port uint16, err error) {
	packet := make([]byte, discoveryPacketLen)
	packet[0], packet[1] = 0, 1   // type = 1 (request)
	packet[2], packet[3] = 0, 70  // length = 70
	packet[4] = byte(c.ssrc >> 24)
	packet[5] = byte(c.ssrc >> 16)
	packet[6] = byte(c.ssrc >> 8)
	packet[7] = byte(c.ssrc)

	if _, err := c.socket.WriteToUDP(packet, c.destination); err != nil {
		return "", 0, fmt.Errorf("voice udp: sending discovery probe: %w", err)
	}

	resp := make([]byte, discoveryPacketLen)
	n, _, err := c.socket.ReadFromUDP(resp)
	if err != nil {
		return "", 0, fmt.Errorf("voice udp: reading discovery response: %w", err)
	}
	if n < 10 {
		return "", 0, fmt.Errorf("voice udp: discovery response too short: %d bytes", n)
	}

	addrBytes := resp[8 : n-2]
	ip = string(bytes.TrimRight(addrBytes, "\x00"))
	port = uint16(resp[n-2])<<8 | uint16(resp[n-1])

	return ip, port, nil
}

// SendOpus encrypts one Opus frame and sends it as an RTP packet, then
// advances the sequence/timestamp/nonce counters, all of which wrap at
// their natural width.
func (c *Channel) SendOpus(payload []byte, cipher *crypto.Cipher) error {
	c.mu.Lock()
	seq, ts, nonceCounter := c.sequence, c.timestamp, c.nonce
	c.mu.Unlock()

	header := rtp.Header{
		Version:        2,
		Padding:        false,
		Extension:      false,
		Marker:         false,
		PayloadType:    rtpPayloadType,
		SequenceNumber: seq,
		Timestamp:      ts,
		SSRC:           c.ssrc,
	}
	headerBytes, err := header.Marshal()
	if err != nil {
		return fmt.Errorf("voice udp: marshalling RTP header: %w", err)
	}

	nonce := crypto.NonceFromCounter(nonceCounter)
	ciphertext, err := cipher.Encrypt(payload, nonce, headerBytes)
	if err != nil {
		return fmt.Errorf("voice udp: encrypting frame: %w", err)
	}

	packet := make([]byte, 0, len(headerBytes)+len(ciphertext)+4)
	packet = append(packet, headerBytes...)
	packet = append(packet, ciphertext...)
	packet = append(packet, byte(nonceCounter>>24), byte(nonceCounter>>16), byte(nonceCounter>>8), byte(nonceCounter))

	if _, err := c.socket.WriteToUDP(packet, c.destination); err != nil {
		return fmt.Errorf("voice udp: sending RTP packet: %w", err)
	}

	c.mu.Lock()
	c.sequence++
	c.timestamp += opusFrameSamples
	c.nonce++
	c.mu.Unlock()

	return nil
}

// Counters returns the current (sequence, timestamp, nonce) triple, for
// tests and diagnostics.
func (c *Channel) Counters() (uint16, uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence, c.timestamp, c.nonce
}
