package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
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

func TestNewCodecParameters(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParameters(testSPS, testPPS)
	require.NoError(t, err)
	require.Equal(t, mp4mux.H264, par.Type())
	require.Equal(t, uint(1920), par.Width())
	require.Equal(t, uint(1080), par.Height())
	require.Equal(t, uint(30), par.FPS())
	require.Equal(t, "avc1.42C028", par.Tag())
	require.Equal(t, testSPS, par.SPS())
	require.Equal(t, testPPS, par.PPS())

	par.SPS()[1] = 0
	require.Equal(t, byte(0x42), testSPS[1])
}

func TestNewCodecParametersErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  []byte
		pps  []byte
	}{
		{name: "missing_sps", sps: nil, pps: testPPS},
		{name: "short_sps", sps: testSPS[:2], pps: testPPS},
		{name: "missing_pps", sps: testSPS, pps: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCodecParameters(tt.sps, tt.pps)
			require.ErrorIs(t, err, ErrParameterSetsMissing)
		})
	}

	_, err := NewCodecParameters([]byte{0x67, 0xff, 0xff, 0xff}, testPPS)
	require.Error(t, err)
}

func TestNewCodecParametersFromAccessUnit(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParametersFromAccessUnit([][]byte{
		{0x09, 0xf0},
		testSPS,
		testPPS,
		{0x65, 0x88, 0x84},
	})
	require.NoError(t, err)
	require.Equal(t, testSPS, par.SPS())

	_, err = NewCodecParametersFromAccessUnit([][]byte{{0x65, 0x88}})
	require.ErrorIs(t, err, ErrParameterSetsMissing)
}

func TestIsKeyFrame(t *testing.T) {
	t.Parallel()

	require.True(t, IsKeyFrame([][]byte{testSPS, testPPS, {0x65, 0x88}}))
	require.False(t, IsKeyFrame([][]byte{{0x41, 0x9a}}))
	require.False(t, IsKeyFrame([][]byte{{}}))
}
