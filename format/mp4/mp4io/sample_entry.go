package mp4io

import (
	"fmt"
	"math"

	gomp4 "github.com/abema/go-mp4"
	mch265 "github.com/bluenviron/mediacommon/pkg/codecs/h265"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec/aac"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/codec/h265"
	"github.com/ugparu/mp4mux/codec/mjpeg"
	"github.com/ugparu/mp4mux/codec/opus"
)

const (
	objectTypeIndicationAudioISO14496part3  = 0x40
	objectTypeIndicationVisualISO10918part1 = 0x6C

	streamTypeVisualStream = 0x04
	streamTypeAudioStream  = 0x05

	opusPreSkip = 312

	fixedPoint16 = 65536

	// rates declared when the descriptor carries no nominal bitrate
	defaultVideoBitrate = 1000000
	defaultAudioBitrate = 128825
)

// SupportsCodec reports whether the movie assembler can describe tracks of par.
func SupportsCodec(par mp4mux.CodecParameters) bool {
	switch par.(type) {
	case *h264.CodecParameters, *h265.CodecParameters, *mjpeg.CodecParameters,
		*aac.CodecParameters, *opus.CodecParameters:
		return true
	}
	return false
}

// bitrateOf returns the nominal bitrate of par in bits per second.
func bitrateOf(par mp4mux.CodecParameters) uint32 {
	if br := par.Bitrate(); br > 0 {
		return uint32(min(br, math.MaxUint32)) //nolint:gosec
	}
	if _, ok := par.(mp4mux.AudioCodecParameters); ok {
		return defaultAudioBitrate
	}
	return defaultVideoBitrate
}

func visualSampleEntry(typ gomp4.BoxType, width, height uint) *gomp4.VisualSampleEntry {
	return &gomp4.VisualSampleEntry{
		SampleEntry: gomp4.SampleEntry{
			AnyTypeBox: gomp4.AnyTypeBox{
				Type: typ,
			},
			DataReferenceIndex: 1,
		},
		Width:           uint16(width),  //nolint:gosec
		Height:          uint16(height), //nolint:gosec
		Horizresolution: 4718592,        //nolint:mnd
		Vertresolution:  4718592,        //nolint:mnd
		FrameCount:      1,
		Depth:           24, //nolint:mnd
		PreDefined3:     -1,
	}
}

func audioSampleEntry(typ gomp4.BoxType, channels uint8, sampleRate uint64) *gomp4.AudioSampleEntry {
	return &gomp4.AudioSampleEntry{
		SampleEntry: gomp4.SampleEntry{
			AnyTypeBox: gomp4.AnyTypeBox{
				Type: typ,
			},
			DataReferenceIndex: 1,
		},
		ChannelCount: uint16(channels),
		SampleSize:   16,                                //nolint:mnd
		SampleRate:   uint32(sampleRate * fixedPoint16), //nolint:gosec
	}
}

// writeSampleEntry writes the single stsd entry of a track.
func (w *boxWriter) writeSampleEntry(trackID uint32, par mp4mux.CodecParameters) error {
	var err error

	switch par := par.(type) {
	case *h264.CodecParameters:
		_, err = w.writeBoxStart(visualSampleEntry(gomp4.BoxTypeAvc1(), par.Width(), par.Height())) // <avc1>
		if err != nil {
			return err
		}

		_, err = w.writeBox(&gomp4.AVCDecoderConfiguration{ // <avcC/>
			AnyTypeBox: gomp4.AnyTypeBox{
				Type: gomp4.BoxTypeAvcC(),
			},
			ConfigurationVersion:       1,
			Profile:                    par.SPSInfo.ProfileIdc,
			ProfileCompatibility:       par.SPSBytes[2],
			Level:                      par.SPSInfo.LevelIdc,
			LengthSizeMinusOne:         3, //nolint:mnd
			NumOfSequenceParameterSets: 1,
			SequenceParameterSets: []gomp4.AVCParameterSet{{
				Length:  uint16(len(par.SPSBytes)), //nolint:gosec
				NALUnit: par.SPSBytes,
			}},
			NumOfPictureParameterSets: 1,
			PictureParameterSets: []gomp4.AVCParameterSet{{
				Length:  uint16(len(par.PPSBytes)), //nolint:gosec
				NALUnit: par.PPSBytes,
			}},
		})

	case *h265.CodecParameters:
		_, err = w.writeBoxStart(visualSampleEntry(gomp4.BoxTypeHev1(), par.Width(), par.Height())) // <hev1>
		if err != nil {
			return err
		}

		ptl := par.SPSInfo.ProfileTierLevel
		_, err = w.writeBox(&gomp4.HvcC{ // <hvcC/>
			ConfigurationVersion:        1,
			GeneralProfileSpace:         ptl.GeneralProfileSpace,
			GeneralTierFlag:             ptl.GeneralTierFlag != 0,
			GeneralProfileIdc:           ptl.GeneralProfileIdc,
			GeneralProfileCompatibility: ptl.GeneralProfileCompatibilityFlag,
			GeneralConstraintIndicator:  par.GeneralConstraintIndicator(),
			GeneralLevelIdc:             ptl.GeneralLevelIdc,
			ChromaFormatIdc:             uint8(par.SPSInfo.ChromaFormatIdc),      //nolint:gosec
			BitDepthLumaMinus8:          uint8(par.SPSInfo.BitDepthLumaMinus8),   //nolint:gosec
			BitDepthChromaMinus8:        uint8(par.SPSInfo.BitDepthChromaMinus8), //nolint:gosec
			NumTemporalLayers:           1,
			LengthSizeMinusOne:          3, //nolint:mnd
			NumOfNaluArrays:             3, //nolint:mnd
			NaluArrays: []gomp4.HEVCNaluArray{
				hevcNaluArray(mch265.NALUType_VPS_NUT, par.VPSBytes),
				hevcNaluArray(mch265.NALUType_SPS_NUT, par.SPSBytes),
				hevcNaluArray(mch265.NALUType_PPS_NUT, par.PPSBytes),
			},
		})

	case *mjpeg.CodecParameters:
		_, err = w.writeBoxStart(visualSampleEntry(gomp4.BoxTypeMp4v(), par.Width(), par.Height())) // <mp4v>
		if err != nil {
			return err
		}

		_, err = w.writeBox(&gomp4.Esds{ // <esds/>
			Descriptors: []gomp4.Descriptor{
				{
					Tag:  gomp4.ESDescrTag,
					Size: 27, //nolint:mnd
					ESDescriptor: &gomp4.ESDescriptor{
						ESID: uint16(trackID), //nolint:gosec
					},
				},
				{
					Tag:  gomp4.DecoderConfigDescrTag,
					Size: 13, //nolint:mnd
					DecoderConfigDescriptor: &gomp4.DecoderConfigDescriptor{
						ObjectTypeIndication: objectTypeIndicationVisualISO10918part1,
						StreamType:           streamTypeVisualStream,
						Reserved:             true,
						MaxBitrate:           bitrateOf(par),
						AvgBitrate:           bitrateOf(par),
					},
				},
				{
					Tag:  gomp4.SLConfigDescrTag,
					Size: 1,
					Data: []byte{0x02},
				},
			},
		})

	case *aac.CodecParameters:
		_, err = w.writeBoxStart(audioSampleEntry(gomp4.BoxTypeMp4a(), par.Channels(), par.SampleRate())) // <mp4a>
		if err != nil {
			return err
		}

		enc := par.MPEG4AudioConfigBytes()
		_, err = w.writeBox(&gomp4.Esds{ // <esds/>
			Descriptors: []gomp4.Descriptor{
				{
					Tag:  gomp4.ESDescrTag,
					Size: 32 + uint32(len(enc)), //nolint:gosec,mnd
					ESDescriptor: &gomp4.ESDescriptor{
						ESID: uint16(trackID), //nolint:gosec
					},
				},
				{
					Tag:  gomp4.DecoderConfigDescrTag,
					Size: 18 + uint32(len(enc)), //nolint:gosec,mnd
					DecoderConfigDescriptor: &gomp4.DecoderConfigDescriptor{
						ObjectTypeIndication: objectTypeIndicationAudioISO14496part3,
						StreamType:           streamTypeAudioStream,
						Reserved:             true,
						MaxBitrate:           bitrateOf(par),
						AvgBitrate:           bitrateOf(par),
					},
				},
				{
					Tag:  gomp4.DecSpecificInfoTag,
					Size: uint32(len(enc)), //nolint:gosec
					Data: enc,
				},
				{
					Tag:  gomp4.SLConfigDescrTag,
					Size: 1,
					Data: []byte{0x02},
				},
			},
		})

	case *opus.CodecParameters:
		_, err = w.writeBoxStart(audioSampleEntry(gomp4.BoxTypeOpus(), par.Channels(), opus.SampleRate)) // <Opus>
		if err != nil {
			return err
		}

		_, err = w.writeBox(&gomp4.DOps{ // <dOps/>
			OutputChannelCount: par.Channels(),
			PreSkip:            opusPreSkip,
			InputSampleRate:    opus.SampleRate,
		})

	default:
		return fmt.Errorf("mp4io: no sample entry for codec %s", par.Type())
	}
	if err != nil {
		return err
	}

	rate := bitrateOf(par)
	if _, err = w.writeBox(&gomp4.Btrt{ // <btrt/>
		MaxBitrate: rate,
		AvgBitrate: rate,
	}); err != nil {
		return err
	}

	return w.writeBoxEnd() // </sample entry>
}

func hevcNaluArray(typ mch265.NALUType, nalu []byte) gomp4.HEVCNaluArray {
	return gomp4.HEVCNaluArray{
		NaluType: byte(typ),
		NumNalus: 1,
		Nalus: []gomp4.HEVCNalu{{
			Length:  uint16(len(nalu)), //nolint:gosec
			NALUnit: nalu,
		}},
	}
}
