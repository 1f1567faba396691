package webm

import "io"

// CountFrames drains r through a fresh Demuxer and reports how many Opus
// SimpleBlock frames it produced. The local source uses this to estimate
// track duration (frameCount * 20ms) in the absence of a general-purpose
// container prober in the retrieved dependency set.
func CountFrames(r io.Reader) (int, error) {
	s := NewStreamer(r)
	count := 0
	for {
		_, err := s.NextFrame()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
	}
}
