// Package audio unifies the WebM/Opus passthrough and transcode-to-Opus
// pipelines behind a single frame source (§4.C).
package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ecliptia/aelira/internal/webm"
)

// opusFrameSamples is 960 samples/channel (20ms at 48kHz); pcmBufferFloats
// is that many samples across both channels, interleaved.
const (
	opusFrameSamples = 960
	pcmBufferFloats  = opusFrameSamples * opusChannels
)

// Processor yields one Opus frame per call, implementing
// pacer.FrameSource without importing it (avoids a dependency cycle; the
// pacer package depends on the interface shape, not on this package).
type Processor struct {
	next func() ([]byte, error)
}

// NextFrame returns the next Opus payload, or io.EOF once exhausted.
func (p *Processor) NextFrame() ([]byte, error) {
	return p.next()
}

// NewWebmOpusProcessor passes through SimpleBlock payloads from a
// WebM/Opus byte stream unchanged.
func NewWebmOpusProcessor(r io.Reader) *Processor {
	streamer := webm.NewStreamer(r)
	return &Processor{next: streamer.NextFrame}
}

// NewTranscodeProcessor buffers the whole input, decodes it as container,
// and reencodes to Opus. Returns ErrUnsupportedContainer if the corpus
// carries no decoder for container.
func NewTranscodeProcessor(data []byte, container Container) (*Processor, error) {
	decoder, err := NewPCMDecoder(container, data)
	if err != nil {
		return nil, err
	}
	encoder, err := newOpusEncoder()
	if err != nil {
		return nil, fmt.Errorf("audio: building opus encoder: %w", err)
	}
	stream := newPCMToOpusStream(decoder, encoder)
	return &Processor{next: stream.nextFrame}, nil
}

// pcmToOpusStream buffers decoded PCM until it has a full 20ms frame,
// then encodes it. Mirrors PcmToOpusStream from the original processor.
type pcmToOpusStream struct {
	decoder PCMDecoder
	encoder opusEncoder
	buffer  []float32
}

func newPCMToOpusStream(decoder PCMDecoder, encoder opusEncoder) *pcmToOpusStream {
	return &pcmToOpusStream{decoder: decoder, encoder: encoder}
}

func (s *pcmToOpusStream) nextFrame() ([]byte, error) {
	for len(s.buffer) < pcmBufferFloats {
		samples, err := s.decoder.NextPacket()
		if err == io.EOF {
			// Trailing partial frame (< 20ms) is dropped, matching the
			// original: it never pads or flushes a short tail.
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("audio: decoding source: %w", err)
		}
		s.buffer = append(s.buffer, samples...)
	}

	frame := s.buffer[:pcmBufferFloats]
	s.buffer = s.buffer[pcmBufferFloats:]

	out := make([]byte, opusMaxPacketBytes)
	n, err := s.encoder.EncodeFloat32(frame, out)
	if err != nil {
		return nil, fmt.Errorf("audio: encoding opus frame: %w", err)
	}
	return out[:n], nil
}

// NewProcessor dispatches on declaredFormat exactly as the original
// AudioProcessor::new does: webm/opus passes through; anything else is
// buffered and run through the transcode pipeline, falling back to WebM
// passthrough if the format can't be decoded as PCM.
func NewProcessor(r io.Reader, declaredFormat string) (*Processor, error) {
	if declaredFormat == "webm/opus" {
		return NewWebmOpusProcessor(r), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audio: buffering source for transcode: %w", err)
	}

	container := MapMIMEToContainer(declaredFormat)
	if proc, err := NewTranscodeProcessor(data, container); err == nil {
		return proc, nil
	}

	return NewWebmOpusProcessor(bytes.NewReader(data)), nil
}
