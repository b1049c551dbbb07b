package mp4

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec/aac"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/codec/opus"
)

type muxedPacket struct {
	streamIndex uint8
	ts          time.Duration
	key         bool
	data        []byte
}

func testStreams(t *testing.T) (*h264.CodecParameters, *aac.CodecParameters) {
	t.Helper()

	video, err := h264.NewCodecParameters(testH264SPS, testH264PPS)
	require.NoError(t, err)
	video.SetStreamIndex(0)
	audio, err := aac.NewCodecParameters(testAACConfig)
	require.NoError(t, err)
	audio.SetStreamIndex(1)
	return video, audio
}

// muxTestFile writes two seconds of 25 fps video and 50 packets per second of audio to path.
func muxTestFile(t *testing.T, path string, conf Config) []muxedPacket {
	t.Helper()

	video, audio := testStreams(t)
	mux, err := CreateMuxer(path, conf)
	require.NoError(t, err)
	require.NoError(t, mux.Mux(mp4mux.CodecParametersPair{
		VideoCodecParameters: video,
		AudioCodecParameters: audio,
	}))

	var written []muxedPacket
	for i := 0; i < 100; i++ {
		ts := time.Duration(i) * 20 * time.Millisecond
		if i%2 == 0 {
			frame := muxedPacket{
				streamIndex: 0,
				ts:          ts,
				key:         i%50 == 0,
				data:        []byte{0, 0, 0, 3, 0x41, byte(i), byte(i >> 8)},
			}
			if frame.key {
				frame.data[4] = 0x65
			}
			pkt := h264.NewPacket(frame.key, ts, frame.data, path, video)
			require.NoError(t, mux.WritePacket(pkt))
			pkt.Close()
			written = append(written, frame)
		}

		sample := muxedPacket{streamIndex: 1, ts: ts, key: true, data: []byte{0x21, byte(i), 0x80}}
		pkt := aac.NewPacket(sample.data, ts, path, audio, 20*time.Millisecond)
		require.NoError(t, mux.WritePacket(pkt))
		pkt.Close()
		written = append(written, sample)
	}
	require.NoError(t, mux.Close())
	return written
}

func TestMuxerDemuxerRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		streaming bool
	}{
		{name: "moov_at_start", streaming: true},
		{name: "moov_at_end", streaming: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "out.mp4")
			conf := growthConfig()
			conf.AttemptStreamableOutput = tt.streaming
			written := muxTestFile(t, path, conf)

			dmx := NewDemuxer(path)
			defer dmx.Close()
			params, err := dmx.Demux()
			require.NoError(t, err)
			require.Equal(t, path, params.URL)
			require.Equal(t, mp4mux.H264, params.VideoCodecParameters.Type())
			require.Equal(t, uint8(0), params.VideoCodecParameters.StreamIndex())
			require.Equal(t, mp4mux.AAC, params.AudioCodecParameters.Type())
			require.Equal(t, uint8(1), params.AudioCodecParameters.StreamIndex())
			require.Equal(t, uint64(48000), params.AudioCodecParameters.SampleRate())

			byStream := map[uint8][]muxedPacket{}
			for _, p := range written {
				byStream[p.streamIndex] = append(byStream[p.streamIndex], p)
			}

			read := map[uint8]int{}
			var lastTS time.Duration
			for {
				pkt, err := dmx.ReadPacket()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				require.GreaterOrEqual(t, pkt.Timestamp(), lastTS, "packets are returned in decode order")
				lastTS = pkt.Timestamp()

				idx := pkt.StreamIndex()
				want := byStream[idx][read[idx]]
				read[idx]++
				require.Equal(t, want.ts, pkt.Timestamp())
				require.Equal(t, want.data, pkt.Data())
				if vpkt, ok := pkt.(mp4mux.VideoPacket); ok {
					require.Equal(t, want.key, vpkt.IsKeyFrame())
				}
				pkt.Close()
			}
			require.Equal(t, len(byStream[0]), read[0])
			require.Equal(t, len(byStream[1]), read[1])
		})
	}
}

func TestMuxerErrors(t *testing.T) {
	t.Parallel()

	video, audio := testStreams(t)

	mux, err := NewMuxer(newMemFile(), DefaultConfig())
	require.NoError(t, err)
	require.Error(t, mux.Mux(mp4mux.CodecParametersPair{}))

	clash := opus.NewCodecParameters(0, 2)
	require.Error(t, mux.Mux(mp4mux.CodecParametersPair{
		VideoCodecParameters: video,
		AudioCodecParameters: clash,
	}))

	mux, err = NewMuxer(newMemFile(), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, mux.Mux(mp4mux.CodecParametersPair{VideoCodecParameters: video}))
	require.Error(t, mux.Mux(mp4mux.CodecParametersPair{VideoCodecParameters: video}))

	pkt := aac.NewPacket([]byte{1}, 0, "", audio, 0)
	defer pkt.Close()
	require.Error(t, mux.WritePacket(pkt))
	require.NoError(t, mux.Close())

	conf := DefaultConfig()
	conf.ReservedMoovSize = 0
	_, err = NewMuxer(newMemFile(), conf)
	require.Error(t, err)
}

func TestMuxerCopiesPackets(t *testing.T) {
	t.Parallel()

	video, _ := testStreams(t)
	conf := DefaultConfig()
	conf.SampleCopy = false
	f := newMemFile()
	mux, err := NewMuxer(f, conf)
	require.NoError(t, err)
	require.True(t, mux.writer.conf.SampleCopy)
	require.NoError(t, mux.Mux(mp4mux.CodecParametersPair{VideoCodecParameters: video}))

	pkt := h264.NewPacket(true, 0, []byte{0, 0, 0, 1, 0x65}, "", video)
	require.NoError(t, mux.WritePacket(pkt))
	pkt.Data()[4] = 0x41
	pkt.Close()
	require.NoError(t, mux.Close())

	track := mux.tracks[0]
	off := track.ChunkOffsets()[0]
	require.Equal(t, byte(0x65), f.buf[off+4])
	require.True(t, track.WrittenSamples()[0].IsSync())
}
