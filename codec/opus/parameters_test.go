package opus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
)

func TestCodecParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		want     uint8
	}{
		{name: "mono", channels: 1, want: 1},
		{name: "stereo", channels: 2, want: 2},
		{name: "clamped", channels: 300, want: 255},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			par := NewCodecParameters(1, tt.channels)
			require.Equal(t, mp4mux.OPUS, par.Type())
			require.Equal(t, uint64(48000), par.SampleRate())
			require.Equal(t, tt.want, par.Channels())
			require.Equal(t, uint8(1), par.StreamIndex())
			require.Equal(t, "opus", par.Tag())
		})
	}
}

func TestNewPacket(t *testing.T) {
	t.Parallel()

	par := NewCodecParameters(1, 2)
	pkt := NewPacket([]byte{0xfc, 0xff, 0xfe}, time.Second, "", par, 20*time.Millisecond)
	defer pkt.Close()

	require.Equal(t, uint8(1), pkt.StreamIndex())
	require.Equal(t, 20*time.Millisecond, pkt.Duration())
	require.Equal(t, []byte{0xfc, 0xff, 0xfe}, pkt.Data())
	require.Equal(t, par, pkt.CodecParameters())
}
