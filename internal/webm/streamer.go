package webm

import "io"

const readChunkSize = 4096

// Streamer pulls bytes from an io.Reader on demand and surfaces Opus
// frames one at a time, backpressuring naturally: it only reads more input
// when the Demuxer has nothing buffered to emit.
type Streamer struct {
	r io.Reader
	d *Demuxer
	chunk []byte
	eof   bool
}

// NewStreamer wraps r with a fresh Demuxer.
func NewStreamer(r io.Reader) *Streamer {
	return &Streamer{r: r, d: New(), chunk: make([]byte, readChunkSize)}
}

// NextFrame returns the next Opus payload, io.EOF once the source and any
// buffered input are exhausted, or a read error from the underlying reader.
func (s *Streamer) NextFrame() ([]byte, error) {
	for {
		if frame, ok := s.d.Pop(); ok {
			return frame, nil
		}
		if s.eof {
			return nil, io.EOF
		}

		n, err := s.r.Read(s.chunk)
		if n > 0 {
			s.d.Push(s.chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				s.eof = true
				continue
			}
			return nil, err
		}
	}
}
