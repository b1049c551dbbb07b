package codec

import (
	"fmt"
	"math"

	"github.com/ugparu/mp4mux"
)

// BaseParameters is embedded by every codec descriptor. It holds what the muxer needs to route
// packets to a track and what the sample entry declares besides the codec configuration.
type BaseParameters struct {
	// Index is the stream index packets of this descriptor carry.
	Index uint8
	// BRate is the nominal bitrate in bits per second, zero when unknown.
	BRate uint
	mp4mux.CodecType
}

func (par *BaseParameters) SetStreamIndex(idx uint8) {
	par.Index = idx
}

// StreamIndex returns MaxUint8 for a nil descriptor so it never matches a track.
func (par *BaseParameters) StreamIndex() uint8 {
	if par == nil {
		return math.MaxUint8
	}
	return par.Index
}

func (par *BaseParameters) Type() mp4mux.CodecType {
	if par == nil {
		return math.MaxUint32
	}
	return par.CodecType
}

// SetBitrate records the nominal bitrate, declared in the btrt and esds boxes of the track.
func (par *BaseParameters) SetBitrate(br uint) {
	par.BRate = br
}

// Bitrate returns the nominal bitrate. The movie assembler substitutes a per-kind default for zero.
func (par *BaseParameters) Bitrate() uint {
	if par == nil {
		return 0
	}
	return par.BRate
}

func (par *BaseParameters) String() string {
	if par == nil {
		return "EMPTY_CODEC_PARAMETERS"
	}
	if par.BRate == 0 {
		return fmt.Sprintf("CODEC_PARAMETERS codec=%v idx=%d", par.CodecType, par.Index)
	}
	return fmt.Sprintf("CODEC_PARAMETERS codec=%v idx=%d bitrate=%d", par.CodecType, par.Index, par.BRate)
}
