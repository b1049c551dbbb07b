package segmenter

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec/aac"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/format/mp4"
)

var (
	testSPS = []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
		0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
		0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
		0x20,
	}
	testPPS = []byte{0x08, 0x06, 0x07, 0x08}
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.FatalLevel)
	m.Run()
}

// sendStream queues dur of 25 fps video with a key frame every second and 20 ms audio packets.
// Audio goes first at equal timestamps.
func sendStream(t *testing.T, pktCh chan<- mp4mux.Packet, dur time.Duration) {
	t.Helper()

	video, err := h264.NewCodecParameters(testSPS, testPPS)
	require.NoError(t, err)
	video.SetStreamIndex(0)
	audio, err := aac.NewCodecParameters([]byte{0x11, 0x88})
	require.NoError(t, err)
	audio.SetStreamIndex(1)

	for ts := time.Duration(0); ts < dur; ts += 20 * time.Millisecond {
		pktCh <- aac.NewPacket([]byte{0x21, 0x10, 0x04}, ts, "test", audio, 20*time.Millisecond)
		if ts%(40*time.Millisecond) != 0 {
			continue
		}
		key := ts%time.Second == 0
		nalType := byte(0x41)
		if key {
			nalType = 0x65
		}
		pktCh <- h264.NewPacket(key, ts, []byte{0, 0, 0, 2, nalType, byte(ts / time.Millisecond)}, "test", video)
	}
}

func countPackets(t *testing.T, path string) (video, audio int) {
	t.Helper()

	dmx := mp4.NewDemuxer(path)
	defer dmx.Close()
	_, err := dmx.Demux()
	require.NoError(t, err)
	for {
		pkt, err := dmx.ReadPacket()
		if err == io.EOF {
			return video, audio
		}
		require.NoError(t, err)
		if _, ok := pkt.(mp4mux.VideoPacket); ok {
			video++
		} else {
			audio++
		}
		pkt.Close()
	}
}

func TestSegmenterRotatesOnKeyFrames(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	seg := New(dest, 2*time.Second, mp4.DefaultConfig(), 1024)
	start := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	seg.(*segmenter).clock = func() time.Time { return start }

	seg.Write()
	sendStream(t, seg.Packets(), 5*time.Second)
	seg.Close()

	var files []mp4mux.FileInfo
	for fi := range seg.Files() {
		files = append(files, fi)
	}

	tests := []struct {
		name     string
		duration time.Duration
		video    int
		audio    int
	}{
		// the audio packet at 0 precedes the first key frame and is dropped
		{name: "2024/3/7/2024-03-07T10-00-00_0001.mp4", duration: 2 * time.Second, video: 50, audio: 100},
		{name: "2024/3/7/2024-03-07T10-00-00_0002.mp4", duration: 2 * time.Second, video: 50, audio: 100},
		{name: "2024/3/7/2024-03-07T10-00-00_0003.mp4", duration: 980 * time.Millisecond, video: 25, audio: 49},
	}
	require.Len(t, files, len(tests))

	for i, tt := range tests {
		fi := files[i]
		require.Equal(t, tt.name, fi.Name)
		require.Equal(t, start, fi.Start)
		require.Equal(t, tt.duration, fi.Stop.Sub(fi.Start))
		require.Positive(t, fi.Size)

		video, audio := countPackets(t, filepath.Join(dest, filepath.FromSlash(fi.Name)))
		require.Equal(t, tt.video, video, tt.name)
		require.Equal(t, tt.audio, audio, tt.name)
	}
}

func TestSegmenterWaitsForKeyFrame(t *testing.T) {
	t.Parallel()

	seg := New(t.TempDir(), time.Second, mp4.DefaultConfig(), 16)
	video, err := h264.NewCodecParameters(testSPS, testPPS)
	require.NoError(t, err)

	seg.Write()
	seg.Packets() <- nil
	seg.Packets() <- h264.NewPacket(false, 0, []byte{0, 0, 0, 1, 0x41}, "test", video)
	seg.Close()

	_, ok := <-seg.Files()
	require.False(t, ok)
	require.Equal(t, "SEGMENTER dest="+seg.(*segmenter).dest, seg.(*segmenter).String())
}

func TestSegmenterFinalizesFileAfterFailedWrite(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	seg := New(dest, time.Minute, mp4.DefaultConfig(), 16)
	start := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	seg.(*segmenter).clock = func() time.Time { return start }
	video, err := h264.NewCodecParameters(testSPS, testPPS)
	require.NoError(t, err)

	seg.Write()
	seg.Packets() <- h264.NewPacket(true, 0, []byte{0, 0, 0, 2, 0x65, 0x01}, "test", video)
	// an empty sample is rejected by the writer and ends the current file
	seg.Packets() <- h264.NewPacket(false, 40*time.Millisecond, []byte{}, "test", video)
	seg.Packets() <- h264.NewPacket(false, 80*time.Millisecond, []byte{0, 0, 0, 2, 0x41, 0x02}, "test", video)
	seg.Packets() <- h264.NewPacket(true, 120*time.Millisecond, []byte{0, 0, 0, 2, 0x65, 0x03}, "test", video)
	seg.Packets() <- h264.NewPacket(false, 160*time.Millisecond, []byte{0, 0, 0, 2, 0x41, 0x04}, "test", video)
	seg.Close()

	var files []mp4mux.FileInfo
	for fi := range seg.Files() {
		files = append(files, fi)
	}

	tests := []struct {
		name  string
		video int
	}{
		{name: "2024/3/7/2024-03-07T10-00-00_0001.mp4", video: 1},
		// the delta frame at 80ms has no key frame to start a file and is dropped
		{name: "2024/3/7/2024-03-07T10-00-00_0002.mp4", video: 2},
	}
	require.Len(t, files, len(tests))

	for i, tt := range tests {
		require.Equal(t, tt.name, files[i].Name)
		video, audio := countPackets(t, filepath.Join(dest, filepath.FromSlash(files[i].Name)))
		require.Equal(t, tt.video, video, tt.name)
		require.Zero(t, audio, tt.name)
	}
}
