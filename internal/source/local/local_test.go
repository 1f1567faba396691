package local

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecliptia/aelira/internal/source"
	"github.com/ecliptia/aelira/internal/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMinimalWAV(t *testing.T, path string) {
	t.Helper()
	samples := make([]int16, 48000*2) // 1 second, stereo, silence
	dataBytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s))
	}

	buf := make([]byte, 0, 44+len(dataBytes))
	buf = append(buf, "RIFF"...)
	buf = append(buf, make([]byte, 4)...)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 1)
	buf = appendU16(buf, 2)
	buf = appendU32(buf, 48000)
	buf = appendU32(buf, 48000*4)
	buf = appendU16(buf, 4)
	buf = appendU16(buf, 16)
	buf = append(buf, "data"...)
	buf = appendU32(buf, uint32(len(dataBytes)))
	buf = append(buf, dataBytes...)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func appendU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func appendU16(b []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, v)
	return append(b, tmp...)
}

func TestResolveWAVFileStripsPrefixAndComputesDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	writeMinimalWAV(t, path)

	s := New()
	res := s.Resolve(context.Background(), "local:"+path)
	require.Equal(t, source.LoadTypeTrack, res.LoadType)

	data, ok := res.Data.(source.TrackData)
	require.True(t, ok)
	assert.Equal(t, "song.wav", data.Info.Title)
	assert.Equal(t, "unknown", data.Info.Author)
	assert.Equal(t, "local", data.Info.SourceName)
	assert.Equal(t, path, data.Info.Identifier)
	require.NotNil(t, data.Info.URI)
	assert.Equal(t, path, *data.Info.URI)
	assert.InDelta(t, uint64(1000), data.Info.LengthMs, 5)

	decoded, err := track.Decode(data.Encoded)
	require.NoError(t, err)
	assert.Equal(t, data.Info.Identifier, decoded.Identifier)
}

func TestResolveMissingFileReturnsEmpty(t *testing.T) {
	s := New()
	res := s.Resolve(context.Background(), "file:/nonexistent/path.wav")
	assert.Equal(t, source.LoadTypeEmpty, res.LoadType)
}

func TestSourceMetadata(t *testing.T) {
	s := New()
	assert.Equal(t, "local", s.Name())
	assert.Equal(t, 20, s.Priority())
	assert.ElementsMatch(t, []string{"local", "file"}, s.SearchTerms())
	assert.Equal(t, []string{`^(local|file):`}, s.Patterns())
}
