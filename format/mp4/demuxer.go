package mp4

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec/aac"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/codec/h265"
	"github.com/ugparu/mp4mux/codec/mjpeg"
	"github.com/ugparu/mp4mux/codec/opus"
	"github.com/ugparu/mp4mux/format/mp4/mp4io"
)

// Demuxer reads the first video and the first audio track of a progressive MP4 file in decode
// order.
type Demuxer struct {
	url     string
	r       *os.File
	streams []*demuxStream
	scratch []byte
}

type demuxStream struct {
	info *mp4io.TrackInfo
	next int
}

func NewDemuxer(url string) *Demuxer {
	return &Demuxer{url: url}
}

func (dmx *Demuxer) String() string {
	return fmt.Sprintf("MP4_DEMUXER url=%s", dmx.url)
}

// Demux opens the file and returns the parameters of the selected tracks. The video track gets
// stream index 0, the audio track the next one.
func (dmx *Demuxer) Demux() (params mp4mux.CodecParametersPair, err error) {
	if dmx.r != nil {
		return params, errors.New("mp4: demuxer is already initialized")
	}
	if dmx.r, err = os.Open(dmx.url); err != nil {
		return params, fmt.Errorf("mp4: %w", err)
	}

	movie, err := mp4io.ReadMovie(dmx.r)
	if err != nil {
		return params, fmt.Errorf("mp4: %w", err)
	}

	for _, track := range movie.Tracks {
		switch par := track.CodecParameters.(type) {
		case mp4mux.VideoCodecParameters:
			if params.VideoCodecParameters == nil {
				params.VideoCodecParameters = par
				dmx.streams = append(dmx.streams, &demuxStream{info: track})
			}
		case mp4mux.AudioCodecParameters:
			if params.AudioCodecParameters == nil {
				params.AudioCodecParameters = par
				dmx.streams = append(dmx.streams, &demuxStream{info: track})
			}
		}
	}
	if len(dmx.streams) == 0 {
		return params, errors.New("mp4: no supported tracks")
	}

	// video first so stream indexes do not depend on the track order in the file
	if len(dmx.streams) == 2 && dmx.streams[0].info.CodecParameters.Type().IsAudio() { //nolint:mnd
		dmx.streams[0], dmx.streams[1] = dmx.streams[1], dmx.streams[0]
	}
	for i, s := range dmx.streams {
		s.info.CodecParameters.SetStreamIndex(uint8(i)) //nolint:gosec
	}

	params.URL = dmx.url
	return params, nil
}

// ReadPacket returns the pending sample with the smallest decode time across streams, or io.EOF.
func (dmx *Demuxer) ReadPacket() (mp4mux.Packet, error) {
	if dmx.r == nil {
		return nil, errors.New("mp4: Demux must be called before ReadPacket")
	}

	var chosen *demuxStream
	for _, s := range dmx.streams {
		if s.next >= len(s.info.Samples) {
			continue
		}
		if chosen == nil || s.info.Samples[s.next].DTS < chosen.info.Samples[chosen.next].DTS {
			chosen = s
		}
	}
	if chosen == nil {
		return nil, io.EOF
	}

	samples := chosen.info.Samples
	sample := samples[chosen.next]
	var dur time.Duration
	if chosen.next+1 < len(samples) {
		dur = samples[chosen.next+1].DTS - sample.DTS
	}
	chosen.next++

	if cap(dmx.scratch) < int(sample.Size) {
		dmx.scratch = make([]byte, sample.Size)
	}
	data := dmx.scratch[:sample.Size]
	if _, err := dmx.r.ReadAt(data, sample.Offset); err != nil {
		return nil, fmt.Errorf("mp4: read sample at %d: %w", sample.Offset, err)
	}

	var pkt mp4mux.Packet
	switch par := chosen.info.CodecParameters.(type) {
	case *h264.CodecParameters:
		pkt = h264.NewPacket(sample.Sync, sample.PTS, data, dmx.url, par)
	case *h265.CodecParameters:
		pkt = h265.NewPacket(sample.Sync, sample.PTS, data, dmx.url, par)
	case *mjpeg.CodecParameters:
		pkt = mjpeg.NewPacket(sample.PTS, data, dmx.url, par)
	case *aac.CodecParameters:
		pkt = aac.NewPacket(data, sample.PTS, dmx.url, par, dur)
	case *opus.CodecParameters:
		pkt = opus.NewPacket(data, sample.PTS, dmx.url, par, dur)
	default:
		return nil, fmt.Errorf("mp4: codec type=%v is not supported", par.Type())
	}
	pkt.SetDuration(dur)

	return pkt, nil
}

// Close releases the file.
func (dmx *Demuxer) Close() {
	if dmx.r != nil {
		dmx.r.Close()
	}
}
