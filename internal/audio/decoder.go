package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedContainer is returned for any container this gateway
// cannot decode. Only self-describing PCM (WAV) is decoded directly; the
// retrieved dependency set carries no general-purpose container demuxer
// (the corpus's symphonia equivalent), so mp4/ogg/mp3/flac/aac sources
// are rejected rather than faked.
var ErrUnsupportedContainer = errors.New("audio: unsupported container")

// PCMDecoder yields interleaved stereo float32 PCM at 48kHz, one packet
// at a time, until io.EOF.
type PCMDecoder interface {
	NextPacket() ([]float32, error)
}

// targetSampleRate is the fixed output rate the pacer's RTP stream
// always runs at (§4.C).
const targetSampleRate = 48000

// NewPCMDecoder probes container and returns a decoder over raw,
// resampling to targetSampleRate when the source's native rate differs.
func NewPCMDecoder(container Container, raw []byte) (PCMDecoder, error) {
	switch container {
	case ContainerWAV:
		wav, err := newWAVDecoder(raw)
		if err != nil {
			return nil, err
		}
		if wav.SampleRate() == targetSampleRate {
			return wav, nil
		}
		return newResamplingDecoder(wav, wav.SampleRate(), 2) // NextPacket always upmixes to stereo
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, container)
	}
}
