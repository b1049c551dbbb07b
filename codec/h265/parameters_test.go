package h265

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/mp4mux"
)

var (
	testVPS = []byte{
		0x40, 0x01, 0x0c, 0x01, 0xff, 0xff, 0x02, 0x20,
		0x00, 0x00, 0x03, 0x00, 0xb0, 0x00, 0x00, 0x03,
		0x00, 0x00, 0x03, 0x00, 0x7b, 0x18, 0xb0, 0x24,
	}
	testSPS = []byte{
		0x42, 0x01, 0x01, 0x01, 0x60, 0x00, 0x00, 0x03,
		0x00, 0x90, 0x00, 0x00, 0x03, 0x00, 0x00, 0x03,
		0x00, 0x78, 0xa0, 0x03, 0xc0, 0x80, 0x10, 0xe5,
		0x96, 0x66, 0x69, 0x24, 0xca, 0xe0, 0x10, 0x00,
		0x00, 0x03, 0x00, 0x10, 0x00, 0x00, 0x03, 0x01,
		0xe0, 0x80,
	}
	testPPS = []byte{0x44, 0x01, 0xc1, 0x72, 0xb4, 0x62, 0x40}
)

func TestNewCodecParameters(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParameters(testVPS, testSPS, testPPS)
	require.NoError(t, err)
	require.Equal(t, mp4mux.H265, par.Type())
	require.Equal(t, uint(1920), par.Width())
	require.Equal(t, uint(1080), par.Height())
	require.Equal(t, uint(30), par.FPS())
	require.Equal(t, "hev1.1.4.L120.B0", par.Tag())
	require.Equal(t, [6]uint8{0x03, 0x00, 0x90, 0x00, 0x00, 0x03}, par.GeneralConstraintIndicator())
	require.Equal(t, testVPS, par.VPS())
	require.Equal(t, testSPS, par.SPS())
	require.Equal(t, testPPS, par.PPS())
}

func TestNewCodecParametersErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vps  []byte
		sps  []byte
		pps  []byte
	}{
		{name: "missing_vps", sps: testSPS, pps: testPPS},
		{name: "short_sps", vps: testVPS, sps: testSPS[:8], pps: testPPS},
		{name: "missing_pps", vps: testVPS, sps: testSPS},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCodecParameters(tt.vps, tt.sps, tt.pps)
			require.ErrorIs(t, err, ErrParameterSetsMissing)
		})
	}
}

func TestNewCodecParametersFromAccessUnit(t *testing.T) {
	t.Parallel()

	par, err := NewCodecParametersFromAccessUnit([][]byte{testVPS, testSPS, testPPS, {0x26, 0x01, 0xaf}})
	require.NoError(t, err)
	require.Equal(t, testVPS, par.VPS())
	require.Equal(t, testPPS, par.PPS())
}

func TestIsKeyFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		au   [][]byte
		want bool
	}{
		{name: "idr_w_radl", au: [][]byte{{0x26, 0x01, 0xaf}}, want: true},
		{name: "cra", au: [][]byte{{0x2a, 0x01, 0xaf}}, want: true},
		{name: "trail_r", au: [][]byte{{0x02, 0x01, 0xd0}}, want: false},
		{name: "empty_unit", au: [][]byte{{}}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsKeyFrame(tt.au))
		})
	}
}
