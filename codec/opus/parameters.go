package opus

import (
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
)

// SampleRate is the clock of every Opus stream regardless of the input rate.
const SampleRate = 48000

const maxUint8Value = 255

type CodecParameters struct {
	codec.BaseParameters
	channels int
}

// NewCodecParameters describes an Opus stream. The bitrate stays unknown until SetBitrate.
func NewCodecParameters(index uint8, channels int) *CodecParameters {
	return &CodecParameters{
		BaseParameters: codec.BaseParameters{
			Index:     index,
			CodecType: mp4mux.OPUS,
		},
		channels: channels,
	}
}

func (p *CodecParameters) SampleRate() uint64 {
	return SampleRate
}

func (p *CodecParameters) Channels() uint8 {
	if p.channels > maxUint8Value {
		return maxUint8Value
	}
	return uint8(p.channels) //nolint:gosec
}

func (p *CodecParameters) Tag() string {
	return "opus"
}
