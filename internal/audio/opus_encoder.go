package audio

import "gopkg.in/hraban/opus.v2"

const (
	opusChannels = 2
	// opusMaxPacketBytes is the scratch buffer size handed to the
	// encoder for one 20ms frame, matching the original's 4KiB budget.
	opusMaxPacketBytes = 4000
)

// opusEncoder is the narrow surface the PCM->Opus pipeline needs; tests
// substitute a fake so they don't require a libopus-backed cgo build.
type opusEncoder interface {
	EncodeFloat32(pcm []float32, out []byte) (int, error)
}

type realOpusEncoder struct {
	enc *opus.Encoder
}

func newOpusEncoder() (opusEncoder, error) {
	enc, err := opus.NewEncoder(targetSampleRate, opusChannels, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	return &realOpusEncoder{enc: enc}, nil
}

func (e *realOpusEncoder) EncodeFloat32(pcm []float32, out []byte) (int, error) {
	return e.enc.EncodeFloat32(pcm, out)
}
