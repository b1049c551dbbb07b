package mp4mux

// CodecType represents the type of a codec.
type CodecType uint32

// avCodecTypeMagic keeps codec type values away from small integers.
const avCodecTypeMagic = 233333

// Bitwise flags for codec types.
const (
	codecTypeAudioBit  = 0x1
	codecTypeOtherBits = 1
)

func makeAudioCodecType(base uint32) CodecType {
	return CodecType(base)<<codecTypeOtherBits | CodecType(codecTypeAudioBit)
}

func makeVideoCodecType(base uint32) CodecType {
	return CodecType(base) << codecTypeOtherBits
}

// Codec types known to the container layer.
var (
	H264  = makeVideoCodecType(avCodecTypeMagic + 1) //nolint:mnd
	H265  = makeVideoCodecType(avCodecTypeMagic + 2) //nolint:mnd
	MJPEG = makeVideoCodecType(avCodecTypeMagic + 7) //nolint:mnd
	AAC   = makeAudioCodecType(avCodecTypeMagic + 1) //nolint:mnd
	OPUS  = makeAudioCodecType(avCodecTypeMagic + 7) //nolint:mnd
)

// String returns the human-readable string representation of a CodecType.
func (ct CodecType) String() string {
	switch ct {
	case H264:
		return "H264"
	case H265:
		return "H265"
	case MJPEG:
		return "MJPEG"
	case AAC:
		return "AAC"
	case OPUS:
		return "OPUS"
	}
	return "UNKNOWN"
}

// IsAudio returns true if the CodecType represents an audio codec.
func (ct CodecType) IsAudio() bool {
	return ct&codecTypeAudioBit != 0
}

// IsVideo returns true if the CodecType represents a video codec.
func (ct CodecType) IsVideo() bool {
	return ct&codecTypeAudioBit == 0
}

// NeedsLengthPrefixedNALUs reports whether samples of this codec are stored as
// length-prefixed NAL units.
func (ct CodecType) NeedsLengthPrefixedNALUs() bool {
	return ct == H264 || ct == H265
}
