package mjpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
)

func TestCodecParameters(t *testing.T) {
	t.Parallel()

	par := NewCodecParameters(640, 480, 25)
	require.Equal(t, mp4mux.MJPEG, par.Type())
	require.Equal(t, uint(640), par.Width())
	require.Equal(t, uint(480), par.Height())
	require.Equal(t, uint(25), par.FPS())
	require.Equal(t, "mjpeg.640x480", par.Tag())
	require.Equal(t, uint(640*480*25/2), par.Bitrate())
}

func TestNewPacketIsKeyFrame(t *testing.T) {
	t.Parallel()

	par := NewCodecParameters(640, 480, 25)
	pkt := NewPacket(time.Second, []byte{0xff, 0xd8, 0xff, 0xd9}, "", par)
	defer pkt.Close()

	require.True(t, pkt.IsKeyFrame())
	require.Equal(t, 4, pkt.Len())
}
