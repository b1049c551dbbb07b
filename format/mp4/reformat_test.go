package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux/codec/h264"
	"github.com/ugparu/mp4mux/codec/mjpeg"
)

func TestReformatSample(t *testing.T) {
	t.Parallel()

	h264Par, err := h264.NewCodecParameters(testH264SPS, testH264PPS)
	require.NoError(t, err)
	jpegPar := mjpeg.NewCodecParameters(640, 480, 25)

	tests := []struct {
		name  string
		jpeg  bool
		input []byte
		want  []byte
	}{
		{
			name:  "annexb_4_byte",
			input: []byte{0, 0, 0, 1, 0x65, 0x88, 0, 0, 0, 1, 0x41, 0x9a},
			want:  []byte{0, 0, 0, 2, 0x65, 0x88, 0, 0, 0, 2, 0x41, 0x9a},
		},
		{
			name:  "annexb_3_byte_grows",
			input: []byte{0, 0, 1, 0x65, 0x88, 0x84},
			want:  []byte{0, 0, 0, 3, 0x65, 0x88, 0x84},
		},
		{
			name:  "already_length_prefixed",
			input: []byte{0, 0, 0, 2, 0x65, 0x88},
			want:  []byte{0, 0, 0, 2, 0x65, 0x88},
		},
		{
			name:  "non_nal_codec",
			jpeg:  true,
			input: []byte{0, 0, 1, 0xff, 0xd8},
			want:  []byte{0, 0, 1, 0xff, 0xd8},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []byte
			var err error
			if tt.jpeg {
				got, err = reformatSample(jpegPar, tt.input)
			} else {
				got, err = reformatSample(h264Par, tt.input)
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
