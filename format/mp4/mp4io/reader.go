package mp4io

import (
	"errors"
	"fmt"
	"io"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec/aac"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/codec/h265"
	"github.com/ugparu/mp4mux/codec/mjpeg"
	"github.com/ugparu/mp4mux/codec/opus"
)

// ErrNoMovie is returned by ReadMovie when the input holds no moov box.
var ErrNoMovie = errors.New("mp4io: moov box not found")

// Movie is the parsed sample layout of a progressive MP4 file.
type Movie struct {
	// FastStart reports whether the moov box precedes the mdat box.
	FastStart bool
	Tracks    []*TrackInfo
}

// TrackInfo describes one parsed track. Tracks with codecs the package cannot describe are skipped.
type TrackInfo struct {
	ID              uint32
	TimeScale       uint32
	CodecParameters mp4mux.CodecParameters
	Samples         []SampleLocation
}

// SampleLocation is the position and timing of one sample in the file.
type SampleLocation struct {
	Offset int64
	Size   uint32
	// DTS and PTS are on the movie timeline, edit lists applied.
	DTS  time.Duration
	PTS  time.Duration
	Sync bool
}

func ticksToDuration(v int64, timeScale uint32) time.Duration {
	timeScale64 := int64(timeScale)
	return time.Duration(v/timeScale64)*time.Second +
		time.Duration(v%timeScale64)*time.Second/time.Duration(timeScale64)
}

// ReadMovie parses the moov box of r wherever it is located.
func ReadMovie(r io.ReadSeeker) (*Movie, error) {
	bis, err := gomp4.ExtractBoxes(r, nil, []gomp4.BoxPath{
		{gomp4.BoxTypeMoov()},
		{gomp4.BoxTypeMoov(), gomp4.BoxTypeMvhd()},
		{gomp4.BoxTypeMoov(), gomp4.BoxTypeTrak()},
		{gomp4.BoxTypeMdat()},
	})
	if err != nil {
		return nil, err
	}

	movie := &Movie{}
	var mvhd *gomp4.Mvhd
	var traks []*gomp4.BoxInfo
	mdatAppeared, moovAppeared := false, false
	for _, bi := range bis {
		switch bi.Type {
		case gomp4.BoxTypeMoov():
			moovAppeared = true
			movie.FastStart = !mdatAppeared
		case gomp4.BoxTypeMvhd():
			mvhd = &gomp4.Mvhd{}
			if _, err = bi.SeekToPayload(r); err != nil {
				return nil, err
			}
			if _, err = gomp4.Unmarshal(r, bi.Size-bi.HeaderSize, mvhd, bi.Context); err != nil {
				return nil, err
			}
		case gomp4.BoxTypeTrak():
			traks = append(traks, bi)
		case gomp4.BoxTypeMdat():
			mdatAppeared = true
		}
	}
	if !moovAppeared || mvhd == nil {
		return nil, ErrNoMovie
	}
	if mvhd.Timescale == 0 {
		return nil, errors.New("mp4io: mvhd timescale is zero")
	}

	for _, bi := range traks {
		track, err := readTrack(r, bi, mvhd.Timescale)
		if err != nil {
			return nil, err
		}
		if track != nil {
			movie.Tracks = append(movie.Tracks, track)
		}
	}

	return movie, nil
}

type trakBoxes struct {
	tkhd        *gomp4.Tkhd
	elst        *gomp4.Elst
	mdhd        *gomp4.Mdhd
	visual      *gomp4.VisualSampleEntry
	audio       *gomp4.AudioSampleEntry
	avcC        *gomp4.AVCDecoderConfiguration
	hvcC        *gomp4.HvcC
	esds        *gomp4.Esds
	dOps        *gomp4.DOps
	btrt        *gomp4.Btrt
	stts        *gomp4.Stts
	ctts        *gomp4.Ctts
	stss        *gomp4.Stss
	stsc        *gomp4.Stsc
	stsz        *gomp4.Stsz
	chunkOffset []int64
}

func readTrack(r io.ReadSeeker, bi *gomp4.BoxInfo, movieTimeScale uint32) (*TrackInfo, error) {
	stbl := []gomp4.BoxType{gomp4.BoxTypeMdia(), gomp4.BoxTypeMinf(), gomp4.BoxTypeStbl()}
	stsd := append(stbl[:3:3], gomp4.BoxTypeStsd())
	entryPath := func(entry gomp4.BoxType, child ...gomp4.BoxType) gomp4.BoxPath {
		return append(append(stsd[:4:4], entry), child...)
	}
	tablePath := func(typ gomp4.BoxType) gomp4.BoxPath {
		return append(stbl[:3:3], typ)
	}

	bips, err := gomp4.ExtractBoxesWithPayload(r, bi, []gomp4.BoxPath{
		{gomp4.BoxTypeTkhd()},
		{gomp4.BoxTypeEdts(), gomp4.BoxTypeElst()},
		{gomp4.BoxTypeMdia(), gomp4.BoxTypeMdhd()},
		entryPath(gomp4.BoxTypeAvc1()),
		entryPath(gomp4.BoxTypeAvc1(), gomp4.BoxTypeAvcC()),
		entryPath(gomp4.BoxTypeHev1()),
		entryPath(gomp4.BoxTypeHev1(), gomp4.BoxTypeHvcC()),
		entryPath(gomp4.BoxTypeHvc1()),
		entryPath(gomp4.BoxTypeHvc1(), gomp4.BoxTypeHvcC()),
		entryPath(gomp4.BoxTypeMp4v()),
		entryPath(gomp4.BoxTypeMp4v(), gomp4.BoxTypeEsds()),
		entryPath(gomp4.BoxTypeMp4a()),
		entryPath(gomp4.BoxTypeMp4a(), gomp4.BoxTypeEsds()),
		entryPath(gomp4.BoxTypeOpus()),
		entryPath(gomp4.BoxTypeOpus(), gomp4.BoxTypeDOps()),
		entryPath(gomp4.BoxTypeAvc1(), gomp4.BoxTypeBtrt()),
		entryPath(gomp4.BoxTypeHev1(), gomp4.BoxTypeBtrt()),
		entryPath(gomp4.BoxTypeHvc1(), gomp4.BoxTypeBtrt()),
		entryPath(gomp4.BoxTypeMp4v(), gomp4.BoxTypeBtrt()),
		entryPath(gomp4.BoxTypeMp4a(), gomp4.BoxTypeBtrt()),
		entryPath(gomp4.BoxTypeOpus(), gomp4.BoxTypeBtrt()),
		tablePath(gomp4.BoxTypeStts()),
		tablePath(gomp4.BoxTypeCtts()),
		tablePath(gomp4.BoxTypeStss()),
		tablePath(gomp4.BoxTypeStsc()),
		tablePath(gomp4.BoxTypeStsz()),
		tablePath(gomp4.BoxTypeStco()),
		tablePath(gomp4.BoxTypeCo64()),
	})
	if err != nil {
		return nil, err
	}

	var b trakBoxes
	var mp4v bool
	for _, bip := range bips {
		switch payload := bip.Payload.(type) {
		case *gomp4.Tkhd:
			b.tkhd = payload
		case *gomp4.Elst:
			b.elst = payload
		case *gomp4.Mdhd:
			b.mdhd = payload
		case *gomp4.VisualSampleEntry:
			b.visual = payload
			mp4v = bip.Info.Type == gomp4.BoxTypeMp4v()
		case *gomp4.AudioSampleEntry:
			b.audio = payload
		case *gomp4.AVCDecoderConfiguration:
			b.avcC = payload
		case *gomp4.HvcC:
			b.hvcC = payload
		case *gomp4.Esds:
			b.esds = payload
		case *gomp4.DOps:
			b.dOps = payload
		case *gomp4.Btrt:
			b.btrt = payload
		case *gomp4.Stts:
			b.stts = payload
		case *gomp4.Ctts:
			b.ctts = payload
		case *gomp4.Stss:
			b.stss = payload
		case *gomp4.Stsc:
			b.stsc = payload
		case *gomp4.Stsz:
			b.stsz = payload
		case *gomp4.Stco:
			for _, o := range payload.ChunkOffset {
				b.chunkOffset = append(b.chunkOffset, int64(o))
			}
		case *gomp4.Co64:
			for _, o := range payload.ChunkOffset {
				b.chunkOffset = append(b.chunkOffset, int64(o)) //nolint:gosec
			}
		}
	}

	switch {
	case b.tkhd == nil:
		return nil, errors.New("mp4io: tkhd box not found")
	case b.mdhd == nil:
		return nil, errors.New("mp4io: mdhd box not found")
	case b.mdhd.Timescale == 0:
		return nil, errors.New("mp4io: mdhd timescale is zero")
	case b.stts == nil || b.stsc == nil || b.stsz == nil:
		return nil, errors.New("mp4io: sample table is incomplete")
	}

	track := &TrackInfo{
		ID:        b.tkhd.TrackID,
		TimeScale: b.mdhd.Timescale,
	}

	track.CodecParameters, err = b.codecParameters(mp4v, b.mdhd.Timescale)
	if err != nil {
		return nil, fmt.Errorf("mp4io: track %d: %w", track.ID, err)
	}
	if track.CodecParameters == nil {
		return nil, nil
	}
	if br := b.bitrate(); br > 0 {
		track.CodecParameters.SetBitrate(uint(br))
	}

	if track.Samples, err = b.samples(movieTimeScale, b.mdhd.Timescale); err != nil {
		return nil, fmt.Errorf("mp4io: track %d: %w", track.ID, err)
	}

	return track, nil
}

// codecParameters rebuilds the codec descriptor from the sample entry. Unknown entries give nil.
func (b *trakBoxes) codecParameters(mp4v bool, timeScale uint32) (mp4mux.CodecParameters, error) {
	switch {
	case b.avcC != nil:
		if len(b.avcC.SequenceParameterSets) == 0 || len(b.avcC.PictureParameterSets) == 0 {
			return nil, h264.ErrParameterSetsMissing
		}
		return h264.NewCodecParameters(b.avcC.SequenceParameterSets[0].NALUnit, b.avcC.PictureParameterSets[0].NALUnit)

	case b.hvcC != nil:
		var vps, sps, pps []byte
		for _, arr := range b.hvcC.NaluArrays {
			if len(arr.Nalus) == 0 {
				continue
			}
			switch arr.NaluType {
			case 32: //nolint:mnd
				vps = arr.Nalus[0].NALUnit
			case 33: //nolint:mnd
				sps = arr.Nalus[0].NALUnit
			case 34: //nolint:mnd
				pps = arr.Nalus[0].NALUnit
			}
		}
		return h265.NewCodecParameters(vps, sps, pps)

	case mp4v && b.visual != nil && b.esds != nil:
		dcd := findDescriptor(b.esds.Descriptors, gomp4.DecoderConfigDescrTag)
		if dcd == nil || dcd.DecoderConfigDescriptor == nil ||
			dcd.DecoderConfigDescriptor.ObjectTypeIndication != objectTypeIndicationVisualISO10918part1 {
			return nil, nil
		}
		var fps uint
		if len(b.stts.Entries) > 0 && b.stts.Entries[0].SampleDelta > 0 {
			fps = uint(timeScale / b.stts.Entries[0].SampleDelta)
		}
		return mjpeg.NewCodecParameters(uint(b.visual.Width), uint(b.visual.Height), fps), nil

	case b.audio != nil && b.esds != nil:
		dsi := findDescriptor(b.esds.Descriptors, gomp4.DecSpecificInfoTag)
		if dsi == nil {
			return nil, aac.ErrInvalidConfig
		}
		return aac.NewCodecParameters(dsi.Data)

	case b.audio != nil && b.dOps != nil:
		return opus.NewCodecParameters(0, int(b.dOps.OutputChannelCount)), nil
	}

	return nil, nil
}

// bitrate returns the average bitrate declared by btrt or, failing that, by the esds decoder
// config. Zero means none is declared.
func (b *trakBoxes) bitrate() uint32 {
	if b.btrt != nil && b.btrt.AvgBitrate > 0 {
		return b.btrt.AvgBitrate
	}
	if b.esds != nil {
		if dcd := findDescriptor(b.esds.Descriptors, gomp4.DecoderConfigDescrTag); dcd != nil && dcd.DecoderConfigDescriptor != nil {
			return dcd.DecoderConfigDescriptor.AvgBitrate
		}
	}
	return 0
}

func findDescriptor(descriptors []gomp4.Descriptor, tag int8) *gomp4.Descriptor {
	for i := range descriptors {
		if descriptors[i].Tag == tag {
			return &descriptors[i]
		}
	}
	return nil
}

// samples expands the sample tables into absolute sample locations.
func (b *trakBoxes) samples(movieTimeScale, timeScale uint32) ([]SampleLocation, error) {
	count := len(b.stsz.EntrySize)
	if b.stsz.SampleSize != 0 {
		count = int(b.stsz.SampleCount)
	}
	samples := make([]SampleLocation, count)

	for i := range samples {
		samples[i].Size = b.stsz.SampleSize
		if b.stsz.SampleSize == 0 {
			samples[i].Size = b.stsz.EntrySize[i]
		}
		samples[i].Sync = b.stss == nil
	}
	if b.stss != nil {
		for _, n := range b.stss.SampleNumber {
			if n >= 1 && int(n) <= count {
				samples[n-1].Sync = true
			}
		}
	}

	// offsets
	si := 0
	for ei, entry := range b.stsc.Entries {
		if entry.FirstChunk == 0 {
			return nil, errors.New("stsc first chunk is zero")
		}
		end := uint32(len(b.chunkOffset)) //nolint:gosec
		if ei+1 < len(b.stsc.Entries) {
			end = min(end, b.stsc.Entries[ei+1].FirstChunk-1)
		}
		for ci := entry.FirstChunk - 1; ci < end; ci++ {
			offset := b.chunkOffset[ci]
			for k := uint32(0); k < entry.SamplesPerChunk; k++ {
				if si >= count {
					return nil, errors.New("chunks hold more samples than stsz")
				}
				samples[si].Offset = offset
				offset += int64(samples[si].Size)
				si++
			}
		}
	}
	if si != count {
		return nil, fmt.Errorf("chunks hold %d samples, stsz declares %d", si, count)
	}

	// timing
	var shift int64 // ticks added to media time to land on the movie timeline
	if b.elst != nil {
		for i := range b.elst.Entries {
			if mt := b.elst.GetMediaTime(i); mt == -1 {
				shift += int64(b.elst.GetSegmentDuration(i)) * int64(timeScale) / int64(movieTimeScale) //nolint:gosec
			} else {
				shift -= mt
				break
			}
		}
	}

	var dts int64
	si = 0
	for _, entry := range b.stts.Entries {
		for k := uint32(0); k < entry.SampleCount; k++ {
			if si >= count {
				break
			}
			samples[si].DTS = ticksToDuration(dts+shift, timeScale)
			samples[si].PTS = samples[si].DTS
			dts += int64(entry.SampleDelta)
			si++
		}
	}
	if b.ctts != nil {
		si = 0
		for ei, entry := range b.ctts.Entries {
			for k := uint32(0); k < entry.SampleCount; k++ {
				if si >= count {
					break
				}
				samples[si].PTS = samples[si].DTS + ticksToDuration(b.ctts.GetSampleOffset(ei), timeScale)
				si++
			}
		}
	}

	return samples, nil
}
