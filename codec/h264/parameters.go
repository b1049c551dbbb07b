package h264

import (
	"errors"
	"fmt"
	"math"
	"slices"

	mch264 "github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
)

const minSPSSize = 4

var ErrParameterSetsMissing = errors.New("h264parser: SPS and PPS are required")

type CodecParameters struct {
	codec.BaseParameters
	SPSBytes []byte
	PPSBytes []byte
	SPSInfo  mch264.SPS
}

func NewCodecParameters(sps, pps []byte) (*CodecParameters, error) {
	if len(sps) < minSPSSize || len(pps) == 0 {
		return nil, ErrParameterSetsMissing
	}

	codecPar := &CodecParameters{
		SPSBytes: slices.Clone(sps),
		PPSBytes: slices.Clone(pps),
	}
	if err := codecPar.SPSInfo.Unmarshal(codecPar.SPSBytes); err != nil {
		return nil, fmt.Errorf("h264parser: parse SPS failed(%w)", err)
	}
	codecPar.CodecType = mp4mux.H264

	return codecPar, nil
}

// NewCodecParametersFromAccessUnit picks the first SPS and PPS out of an access unit.
func NewCodecParametersFromAccessUnit(au [][]byte) (*CodecParameters, error) {
	var sps, pps []byte
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		switch mch264.NALUType(nalu[0] & 0x1f) { //nolint:mnd
		case mch264.NALUTypeSPS:
			if sps == nil {
				sps = nalu
			}
		case mch264.NALUTypePPS:
			if pps == nil {
				pps = nalu
			}
		}
	}
	return NewCodecParameters(sps, pps)
}

// IsKeyFrame reports whether the access unit contains an IDR slice.
func IsKeyFrame(au [][]byte) bool {
	for _, nalu := range au {
		if len(nalu) == 0 {
			return false
		}
	}
	return mch264.IDRPresent(au)
}

func (par *CodecParameters) SPS() []byte {
	return par.SPSBytes
}

func (par *CodecParameters) PPS() []byte {
	return par.PPSBytes
}

func (par *CodecParameters) Width() uint {
	return uint(par.SPSInfo.Width()) //nolint:gosec
}

func (par *CodecParameters) Height() uint {
	return uint(par.SPSInfo.Height()) //nolint:gosec
}

func (par *CodecParameters) FPS() uint {
	return uint(math.Round(par.SPSInfo.FPS()))
}

func (par *CodecParameters) Tag() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", par.SPSBytes[1], par.SPSBytes[2], par.SPSBytes[3])
}
