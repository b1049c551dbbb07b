package h265

import (
	"errors"
	"fmt"
	"math"
	"slices"

	mch265 "github.com/bluenviron/mediacommon/pkg/codecs/h265"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
)

// The hvcC box copies the general constraint flags straight out of the SPS payload.
const minSPSSize = 13

var ErrParameterSetsMissing = errors.New("h265parser: VPS, SPS and PPS are required")

type CodecParameters struct {
	codec.BaseParameters
	VPSBytes []byte
	SPSBytes []byte
	PPSBytes []byte
	SPSInfo  mch265.SPS
}

func NewCodecParameters(vps, sps, pps []byte) (*CodecParameters, error) {
	if len(vps) == 0 || len(sps) < minSPSSize || len(pps) == 0 {
		return nil, ErrParameterSetsMissing
	}

	codecPar := &CodecParameters{
		VPSBytes: slices.Clone(vps),
		SPSBytes: slices.Clone(sps),
		PPSBytes: slices.Clone(pps),
	}
	if err := codecPar.SPSInfo.Unmarshal(codecPar.SPSBytes); err != nil {
		return nil, fmt.Errorf("h265parser: parse SPS failed(%w)", err)
	}
	codecPar.CodecType = mp4mux.H265

	return codecPar, nil
}

// NewCodecParametersFromAccessUnit picks the first VPS, SPS and PPS out of an access unit.
func NewCodecParametersFromAccessUnit(au [][]byte) (*CodecParameters, error) {
	var vps, sps, pps []byte
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		switch mch265.NALUType((nalu[0] >> 1) & 0x3f) { //nolint:mnd
		case mch265.NALUType_VPS_NUT:
			if vps == nil {
				vps = nalu
			}
		case mch265.NALUType_SPS_NUT:
			if sps == nil {
				sps = nalu
			}
		case mch265.NALUType_PPS_NUT:
			if pps == nil {
				pps = nalu
			}
		}
	}
	return NewCodecParameters(vps, sps, pps)
}

// IsKeyFrame reports whether the access unit is a random access point.
func IsKeyFrame(au [][]byte) bool {
	for _, nalu := range au {
		if len(nalu) == 0 {
			return false
		}
	}
	return mch265.IsRandomAccess(au)
}

func (par *CodecParameters) VPS() []byte {
	return par.VPSBytes
}

func (par *CodecParameters) SPS() []byte {
	return par.SPSBytes
}

func (par *CodecParameters) PPS() []byte {
	return par.PPSBytes
}

// GeneralConstraintIndicator returns the six constraint flag bytes of the profile tier level.
func (par *CodecParameters) GeneralConstraintIndicator() [6]uint8 {
	var res [6]uint8
	copy(res[:], par.SPSBytes[7:minSPSSize])
	return res
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

// Tag returns a string tag representing the codec information.
func (par *CodecParameters) Tag() string {
	ptl := par.SPSInfo.ProfileTierLevel
	tier := "L"
	if ptl.GeneralTierFlag != 0 {
		tier = "H"
	}
	return fmt.Sprintf("hev1.%d.4.%s%d.B0", ptl.GeneralProfileIdc, tier, ptl.GeneralLevelIdc)
}
