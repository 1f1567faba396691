// Package crypto implements the AEAD-AES-256-GCM-RTPSize encryption scheme
// used for voice RTP payloads (§4.D). It is a thin wrapper over stdlib
// crypto/cipher: no third-party AEAD implementation appears anywhere in the
// retrieved corpus, and Go's standard GCM implementation is the canonical,
// constant-time choice for this primitive.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize is the length in bytes of the secret key delivered by
// SESSION_DESCRIPTION.
const KeySize = 32

// NonceSize is the length in bytes of the AEAD nonce: a 32-bit counter
// followed by zero padding.
const NonceSize = 12

// Cipher encrypts voice RTP payloads with a fixed 256-bit key.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a 32-byte secret key.
func New(secretKey []byte) (*Cipher, error) {
	if len(secretKey) != KeySize {
		return nil, fmt.Errorf("voice crypto: secret key must be %d bytes, got %d", KeySize, len(secretKey))
	}
	block, err := aes.NewCipher(secretKey)
	if err != nil {
		return nil, fmt.Errorf("voice crypto: building AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("voice crypto: building GCM AEAD: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns ciphertext||tag for payload, authenticated against aad
// (the RTP header) under nonce.
func (c *Cipher) Encrypt(payload, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("voice crypto: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	return c.aead.Seal(nil, nonce, payload, aad), nil
}

// Decrypt reverses Encrypt; used by tests to assert the AEAD round trip.
func (c *Cipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("voice crypto: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	return c.aead.Open(nil, nonce, ciphertext, aad)
}

// NonceFromCounter builds the 12-byte nonce used by the RTP sender: the
// 32-bit counter in the first four bytes, big-endian, zero thereafter.
func NonceFromCounter(counter uint32) []byte {
	nonce := make([]byte, NonceSize)
	nonce[0] = byte(counter >> 24)
	nonce[1] = byte(counter >> 16)
	nonce[2] = byte(counter >> 8)
	nonce[3] = byte(counter)
	return nonce
}
