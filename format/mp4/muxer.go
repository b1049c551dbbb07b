package mp4

import (
	"errors"
	"fmt"

	"github.com/ugparu/mp4mux"
)

// Track sort keys used by the muxer: video is described before audio.
const (
	videoSortKey = iota
	audioSortKey
)

// Muxer adapts Writer to packet streams. Packets stay owned by the caller: payloads are always
// copied on write.
type Muxer struct {
	writer *Writer
	tracks map[uint8]*Track // by stream index
}

// NewMuxer returns a muxer writing to f.
func NewMuxer(f File, conf Config) (*Muxer, error) {
	conf.SampleCopy = true
	w, err := NewWriter(f, conf)
	if err != nil {
		return nil, err
	}
	return &Muxer{writer: w}, nil
}

// CreateMuxer creates the file at path and returns a muxer writing to it.
func CreateMuxer(path string, conf Config) (*Muxer, error) {
	conf.SampleCopy = true
	w, err := Create(path, conf)
	if err != nil {
		return nil, err
	}
	return &Muxer{writer: w}, nil
}

func (mux *Muxer) String() string {
	return fmt.Sprintf("MP4_MUXER tracks=%d", len(mux.tracks))
}

// Mux registers the video and audio tracks of streams. Packets are routed by stream index.
func (mux *Muxer) Mux(streams mp4mux.CodecParametersPair) error {
	if mux.tracks != nil {
		return errors.New("mp4: muxer is already initialized")
	}
	if streams.VideoCodecParameters == nil && streams.AudioCodecParameters == nil {
		return errors.New("mp4: no streams to mux")
	}

	tracks := make(map[uint8]*Track, 2) //nolint:mnd
	add := func(sortKey int, par mp4mux.CodecParameters) error {
		if _, ok := tracks[par.StreamIndex()]; ok {
			return fmt.Errorf("mp4: stream index %d is used twice", par.StreamIndex())
		}
		track, err := mux.writer.AddTrack(sortKey, par)
		if err != nil {
			return err
		}
		tracks[par.StreamIndex()] = track
		return nil
	}

	if streams.VideoCodecParameters != nil {
		if err := add(videoSortKey, streams.VideoCodecParameters); err != nil {
			return err
		}
	}
	if streams.AudioCodecParameters != nil {
		if err := add(audioSortKey, streams.AudioCodecParameters); err != nil {
			return err
		}
	}

	mux.tracks = tracks
	return nil
}

// WritePacket writes one packet as a sample of the track of its stream index. Audio packets and
// video key frames are sync samples.
func (mux *Muxer) WritePacket(pkt mp4mux.Packet) error {
	track, ok := mux.tracks[pkt.StreamIndex()]
	if !ok {
		return fmt.Errorf("mp4: no track for stream index %d", pkt.StreamIndex())
	}

	info := mp4mux.SampleInfo{
		Size:             pkt.Len(),
		PresentationTime: pkt.Timestamp(),
	}
	switch p := pkt.(type) {
	case mp4mux.VideoPacket:
		if p.IsKeyFrame() {
			info.Flags |= mp4mux.SampleFlagSync
		}
	case mp4mux.AudioPacket:
		info.Flags |= mp4mux.SampleFlagSync
	}

	return mux.writer.WriteSampleData(track, pkt.Data(), info)
}

// Close finalizes the file.
func (mux *Muxer) Close() error {
	return mux.writer.Close()
}
