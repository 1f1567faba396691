package audio

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// resample adapts a PCMDecoder whose native sample rate differs from the
// processor's fixed 48kHz output, using the resampler the rest of the
// corpus already depends on for this concern rather than hand-rolling
// interpolation.
type resamplingDecoder struct {
	inner    PCMDecoder
	resample func(in []float32) ([]float32, error)
}

func newResamplingDecoder(inner PCMDecoder, sourceRate, channels int) (*resamplingDecoder, error) {
	r, err := resampler.New(sourceRate, targetSampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: building resampler %dHz->%dHz: %w", sourceRate, targetSampleRate, err)
	}
	return &resamplingDecoder{
		inner: inner,
		resample: func(in []float32) ([]float32, error) {
			return r.Process(in)
		},
	}, nil
}

func (d *resamplingDecoder) NextPacket() ([]float32, error) {
	samples, err := d.inner.NextPacket()
	if err != nil {
		return nil, err
	}
	return d.resample(samples)
}
