// Package track implements the versioned binary encodedTrack format (§4.A).
package track

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

// sizeMask/versionFlag match the header layout: size in the low 30 bits,
// bit 30 always set (a leftover "has version" marker from the upstream
// format this was forked from).
const (
	sizeMask    uint32 = 0x3FFFFFFF
	versionFlag uint32 = 1 << 30
)

// Info is the decoded payload of an encodedTrack string, and doubles as
// the JSON shape returned for TrackInfo on the REST surface (§6).
type Info struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	LengthMs   uint64  `json:"lengthMs"`
	Identifier string  `json:"identifier"`
	IsStream   bool    `json:"isStream"`
	URI        *string `json:"uri,omitempty"`
	ArtworkURL *string `json:"artworkUrl,omitempty"`
	ISRC       *string `json:"isrc,omitempty"`
	SourceName string  `json:"sourceName"`
	PositionMs uint64  `json:"positionMs"`
}

// Version reports the minimum format version this Info requires: 3 if
// ArtworkURL or ISRC is set, 2 if URI is set, else 1.
func (i Info) Version() uint8 {
	if i.ArtworkURL != nil || i.ISRC != nil {
		return 3
	}
	if i.URI != nil {
		return 2
	}
	return 1
}

// Encode serializes info into a base64 encodedTrack string at its natural
// version.
func Encode(info Info) (string, error) {
	var payload bytes.Buffer

	version := info.Version()
	if err := payload.WriteByte(version); err != nil {
		return "", err
	}
	if err := writeUTF(&payload, info.Title); err != nil {
		return "", err
	}
	if err := writeUTF(&payload, info.Author); err != nil {
		return "", err
	}
	if err := binary.Write(&payload, binary.BigEndian, info.LengthMs); err != nil {
		return "", err
	}
	if err := writeUTF(&payload, info.Identifier); err != nil {
		return "", err
	}
	if err := payload.WriteByte(boolByte(info.IsStream)); err != nil {
		return "", err
	}

	if version >= 2 {
		if err := writeNullableUTF(&payload, info.URI); err != nil {
			return "", err
		}
	}
	if version >= 3 {
		if err := writeNullableUTF(&payload, info.ArtworkURL); err != nil {
			return "", err
		}
		if err := writeNullableUTF(&payload, info.ISRC); err != nil {
			return "", err
		}
	}

	if err := writeUTF(&payload, info.SourceName); err != nil {
		return "", err
	}
	if err := binary.Write(&payload, binary.BigEndian, info.PositionMs); err != nil {
		return "", err
	}

	body := payload.Bytes()
	header := (uint32(len(body)) & sizeMask) | versionFlag

	var out bytes.Buffer
	if err := binary.Write(&out, binary.BigEndian, header); err != nil {
		return "", err
	}
	out.Write(body)

	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// Decode parses a base64 encodedTrack string into Info. The declared header
// size is rejected when it exceeds the available payload.
func Decode(encoded string) (Info, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Info{}, fmt.Errorf("base64 decode: %w", err)
	}
	if len(raw) < 4 {
		return Info{}, fmt.Errorf("track blob too short: %d bytes", len(raw))
	}

	header := binary.BigEndian.Uint32(raw[:4])
	size := int(header & sizeMask)

	body := raw[4:]
	if size > len(body) {
		return Info{}, fmt.Errorf("declared payload size %d exceeds available %d bytes", size, len(body))
	}
	body = body[:size]

	r := bytes.NewReader(body)

	version, err := r.ReadByte()
	if err != nil {
		return Info{}, fmt.Errorf("reading version: %w", err)
	}

	var info Info

	if info.Title, err = readUTF(r); err != nil {
		return Info{}, fmt.Errorf("reading title: %w", err)
	}
	if info.Author, err = readUTF(r); err != nil {
		return Info{}, fmt.Errorf("reading author: %w", err)
	}
	if err = binary.Read(r, binary.BigEndian, &info.LengthMs); err != nil {
		return Info{}, fmt.Errorf("reading length: %w", err)
	}
	if info.Identifier, err = readUTF(r); err != nil {
		return Info{}, fmt.Errorf("reading identifier: %w", err)
	}

	isStream, err := r.ReadByte()
	if err != nil {
		return Info{}, fmt.Errorf("reading isStream: %w", err)
	}
	info.IsStream = isStream != 0

	if version >= 2 {
		if info.URI, err = readNullableUTF(r); err != nil {
			return Info{}, fmt.Errorf("reading uri: %w", err)
		}
	}
	if version >= 3 {
		if info.ArtworkURL, err = readNullableUTF(r); err != nil {
			return Info{}, fmt.Errorf("reading artworkUrl: %w", err)
		}
		if info.ISRC, err = readNullableUTF(r); err != nil {
			return Info{}, fmt.Errorf("reading isrc: %w", err)
		}
	}

	if info.SourceName, err = readUTF(r); err != nil {
		return Info{}, fmt.Errorf("reading sourceName: %w", err)
	}
	if err = binary.Read(r, binary.BigEndian, &info.PositionMs); err != nil {
		return Info{}, fmt.Errorf("reading position: %w", err)
	}

	return info, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUTF(buf *bytes.Buffer, s string) error {
	b := []byte(s)
	if len(b) > 0xFFFF {
		return fmt.Errorf("string too long for UTF field: %d bytes", len(b))
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := buf.Write(b)
	return err
}

func writeNullableUTF(buf *bytes.Buffer, s *string) error {
	if s == nil {
		return buf.WriteByte(0)
	}
	if err := buf.WriteByte(1); err != nil {
		return err
	}
	return writeUTF(buf, *s)
}

func readUTF(r *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readNullableUTF(r *bytes.Reader) (*string, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	s, err := readUTF(r)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
