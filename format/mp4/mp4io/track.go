package mp4io

import (
	"math"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/mp4mux"
)

const (
	videoTimeScale = 90000

	// used when a video track holds one sample and no frame rate is known
	defaultVideoDelta = 3000
)

func timeScaleOf(par mp4mux.CodecParameters) uint32 {
	if apar, ok := par.(mp4mux.AudioCodecParameters); ok && apar.SampleRate() > 0 {
		return uint32(min(apar.SampleRate(), math.MaxUint32)) //nolint:gosec
	}
	return videoTimeScale
}

// defaultDelta is the duration in ticks given to the last sample of a single-sample track.
func defaultDelta(par mp4mux.CodecParameters, timeScale uint32) uint32 {
	switch par.Type() {
	case mp4mux.AAC:
		return 1024 //nolint:mnd
	case mp4mux.OPUS:
		return 960 //nolint:mnd
	}
	if vpar, ok := par.(mp4mux.VideoCodecParameters); ok && vpar.FPS() > 0 {
		return timeScale / uint32(vpar.FPS()) //nolint:gosec
	}
	return defaultVideoDelta
}

func toMovieTime(ticks int64, timeScale uint32) int64 {
	return int64(float64(ticks) * MovieTimeScale / float64(timeScale))
}

// trackLayout is the timing of one track against the movie timeline.
type trackLayout struct {
	id        uint32
	track     Track
	par       mp4mux.CodecParameters
	timeScale uint32
	st        sampleTable
	// ticks between the movie start and the first presented sample of the track
	timeOffset int64
	// presented duration in the movie timescale
	duration int64
}

func newTrackLayout(id uint32, t Track, minPTS time.Duration) trackLayout {
	l := trackLayout{
		id:        id,
		track:     t,
		par:       t.CodecParameters(),
		timeScale: timeScaleOf(t.CodecParameters()),
	}
	samples := t.WrittenSamples()
	l.st = newSampleTable(samples, l.timeScale, defaultDelta(l.par, l.timeScale))
	if len(samples) > 0 {
		l.timeOffset = durationGoToMp4(l.st.firstPTS-minPTS, l.timeScale)
	}

	presented := l.st.duration
	switch {
	case l.timeOffset > 0:
		presented += l.timeOffset
	case l.timeOffset < 0:
		presented = max(presented+l.timeOffset, 0)
	}
	l.duration = toMovieTime(presented, l.timeScale)
	return l
}

// writeTrack writes one trak box.
func (w *boxWriter) writeTrack(l trackLayout) error {
	par := l.par

	/*
		|trak|
		|    |tkhd|
		|    |edts|
		|    |    |elst|
		|    |mdia|
		|    |    |mdhd|
		|    |    |hdlr|
		|    |    |minf|
	*/

	if _, err := w.writeBoxStart(&gomp4.Trak{}); err != nil { // <trak>
		return err
	}

	tkhd := &gomp4.Tkhd{
		FullBox: gomp4.FullBox{
			Flags: [3]byte{0, 0, 3},
		},
		TrackID: l.id,
		Matrix:  identityMatrix,
	}
	setDuration(&tkhd.FullBox, &tkhd.DurationV0, &tkhd.DurationV1, l.duration)
	if vpar, ok := par.(mp4mux.VideoCodecParameters); ok {
		tkhd.Width = uint32(vpar.Width() * fixedPoint16)   //nolint:gosec
		tkhd.Height = uint32(vpar.Height() * fixedPoint16) //nolint:gosec
	} else {
		tkhd.AlternateGroup = 1
		tkhd.Volume = 256
	}
	if _, err := w.writeBox(tkhd); err != nil { // <tkhd/>
		return err
	}

	if l.timeOffset != 0 {
		if err := w.writeEdits(l.timeOffset, l.st.duration, l.timeScale); err != nil {
			return err
		}
	}

	if _, err := w.writeBoxStart(&gomp4.Mdia{}); err != nil { // <mdia>
		return err
	}

	mdhd := &gomp4.Mdhd{
		Timescale: l.timeScale,
		Language:  [3]byte{'u', 'n', 'd'},
	}
	setDuration(&mdhd.FullBox, &mdhd.DurationV0, &mdhd.DurationV1, l.st.duration)
	if _, err := w.writeBox(mdhd); err != nil { // <mdhd/>
		return err
	}

	hdlr := &gomp4.Hdlr{
		HandlerType: [4]byte{'v', 'i', 'd', 'e'},
		Name:        "VideoHandler",
	}
	if par.Type().IsAudio() {
		hdlr.HandlerType = [4]byte{'s', 'o', 'u', 'n'}
		hdlr.Name = "SoundHandler"
	}
	if _, err := w.writeBox(hdlr); err != nil { // <hdlr/>
		return err
	}

	if err := w.writeMediaInformation(l); err != nil { // <minf>...</minf>
		return err
	}

	if err := w.writeBoxEnd(); err != nil { // </mdia>
		return err
	}

	if err := w.writeBoxEnd(); err != nil { // </trak>
		return err
	}

	return nil
}

// setDuration picks the full box version that can hold d.
func setDuration(fb *gomp4.FullBox, v0 *uint32, v1 *uint64, d int64) {
	if d > math.MaxUint32 {
		fb.Version = 1
		*v1 = uint64(d) //nolint:gosec
		return
	}
	*v0 = uint32(max(d, 0)) //nolint:gosec
}

// writeEdits shifts a track against the movie timeline. A positive offset inserts an empty edit,
// a negative one skips the leading media.
func (w *boxWriter) writeEdits(timeOffset, mediaDuration int64, timeScale uint32) error {
	if _, err := w.writeBoxStart(&gomp4.Edts{}); err != nil { // <edts>
		return err
	}

	elst := &gomp4.Elst{}
	if timeOffset > 0 {
		elst.Entries = []gomp4.ElstEntry{
			{ // pause
				SegmentDurationV0: uint32(toMovieTime(timeOffset, timeScale)), //nolint:gosec
				MediaTimeV0:       -1,
				MediaRateInteger:  1,
			},
			{ // presentation
				SegmentDurationV0: uint32(toMovieTime(mediaDuration, timeScale)), //nolint:gosec
				MediaTimeV0:       0,
				MediaRateInteger:  1,
			},
		}
	} else {
		elst.Entries = []gomp4.ElstEntry{{
			SegmentDurationV0: uint32(toMovieTime(max(mediaDuration+timeOffset, 0), timeScale)), //nolint:gosec
			MediaTimeV0:       clampInt32(-timeOffset),
			MediaRateInteger:  1,
		}}
	}
	elst.EntryCount = uint32(len(elst.Entries)) //nolint:gosec

	if _, err := w.writeBox(elst); err != nil { // <elst/>
		return err
	}

	return w.writeBoxEnd() // </edts>
}

func (w *boxWriter) writeMediaInformation(l trackLayout) error {
	/*
		|minf|
		|    |vmhd|
		|    |dinf|
		|    |    |dref|
		|    |    |    |url|
		|    |stbl|
		|    |    |stsd|
		|    |    |stts|
		|    |    |stss|
		|    |    |ctts|
		|    |    |stsc|
		|    |    |stsz|
		|    |    |stco|
	*/

	par := l.par
	samples := l.track.WrittenSamples()

	if _, err := w.writeBoxStart(&gomp4.Minf{}); err != nil { // <minf>
		return err
	}

	var err error
	if par.Type().IsVideo() {
		_, err = w.writeBox(&gomp4.Vmhd{ // <vmhd/>
			FullBox: gomp4.FullBox{
				Flags: [3]byte{0, 0, 1},
			},
		})
	} else {
		_, err = w.writeBox(&gomp4.Smhd{}) // <smhd/>
	}
	if err != nil {
		return err
	}

	if _, err = w.writeBoxStart(&gomp4.Dinf{}); err != nil { // <dinf>
		return err
	}
	if _, err = w.writeBoxStart(&gomp4.Dref{EntryCount: 1}); err != nil { // <dref>
		return err
	}
	_, err = w.writeBox(&gomp4.Url{ // <url/>
		FullBox: gomp4.FullBox{
			Flags: [3]byte{0, 0, 1},
		},
	})
	if err != nil {
		return err
	}
	if err = w.writeBoxEnd(); err != nil { // </dref>
		return err
	}
	if err = w.writeBoxEnd(); err != nil { // </dinf>
		return err
	}

	if _, err = w.writeBoxStart(&gomp4.Stbl{}); err != nil { // <stbl>
		return err
	}

	if _, err = w.writeBoxStart(&gomp4.Stsd{EntryCount: 1}); err != nil { // <stsd>
		return err
	}
	if err = w.writeSampleEntry(l.id, par); err != nil {
		return err
	}
	if err = w.writeBoxEnd(); err != nil { // </stsd>
		return err
	}

	if _, err = w.writeBox(l.st.stts()); err != nil { // <stts/>
		return err
	}

	if par.Type().IsVideo() {
		if box := stss(samples); box != nil {
			if _, err = w.writeBox(box); err != nil { // <stss/>
				return err
			}
		}
	}

	if box := l.st.ctts(); box != nil {
		if _, err = w.writeBox(box); err != nil { // <ctts/>
			return err
		}
	}

	if _, err = w.writeBox(stsc(l.track.ChunkSampleCounts())); err != nil { // <stsc/>
		return err
	}

	if _, err = w.writeBox(stsz(samples)); err != nil { // <stsz/>
		return err
	}

	if _, err = w.writeBox(chunkOffsetBox(l.track.ChunkOffsets())); err != nil { // <stco/> or <co64/>
		return err
	}

	if err = w.writeBoxEnd(); err != nil { // </stbl>
		return err
	}

	return w.writeBoxEnd() // </minf>
}
