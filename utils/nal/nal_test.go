package nal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitNALUs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  [][]byte
		typ   Format
	}{
		{
			name:  "short_raw",
			input: []byte{0x65, 0x01},
			want:  [][]byte{{0x65, 0x01}},
			typ:   FormatRaw,
		},
		{
			name:  "annexb_4_byte",
			input: []byte{0, 0, 0, 1, 0x67, 0xaa, 0, 0, 0, 1, 0x68, 0xbb},
			want:  [][]byte{{0x67, 0xaa}, {0x68, 0xbb}},
			typ:   FormatAnnexB,
		},
		{
			name:  "annexb_3_byte",
			input: []byte{0, 0, 1, 0x65, 0x11, 0x22, 0, 0, 1, 0x41, 0x33},
			want:  [][]byte{{0x65, 0x11, 0x22}, {0x41, 0x33}},
			typ:   FormatAnnexB,
		},
		{
			name:  "annexb_mixed",
			input: []byte{0, 0, 0, 1, 0x09, 0xf0, 0, 0, 1, 0x65, 0x88},
			want:  [][]byte{{0x09, 0xf0}, {0x65, 0x88}},
			typ:   FormatAnnexB,
		},
		{
			name:  "avcc",
			input: []byte{0, 0, 0, 2, 0x67, 0xaa, 0, 0, 0, 3, 0x65, 0x01, 0x02},
			want:  [][]byte{{0x67, 0xaa}, {0x65, 0x01, 0x02}},
			typ:   FormatAVCC,
		},
		{
			name:  "avcc_single_byte_unit",
			input: []byte{0, 0, 0, 1, 0x09},
			want:  [][]byte{{0x09}},
			typ:   FormatAVCC,
		},
		{
			name:  "raw",
			input: []byte{0x65, 0x88, 0x84, 0x00, 0x21},
			want:  [][]byte{{0x65, 0x88, 0x84, 0x00, 0x21}},
			typ:   FormatRaw,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			nalus, typ := SplitNALUs(tt.input)
			require.Equal(t, tt.typ, typ)
			require.Equal(t, tt.want, nalus)
		})
	}
}

func TestIsAnnexB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  bool
	}{
		{name: "four_byte_start_code", input: []byte{0, 0, 0, 1, 0x65, 0x01, 0x02}, want: true},
		{name: "three_byte_start_code", input: []byte{0, 0, 1, 0x65, 0x01}, want: true},
		{name: "length_prefixed", input: []byte{0, 0, 0, 3, 0x65, 0x01, 0x02}, want: false},
		{name: "no_start_code", input: []byte{0x65, 0x01, 0x02, 0x03}, want: false},
		{name: "empty", input: nil, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsAnnexB(tt.input))
		})
	}
}

func TestFormatString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "RAW", FormatRaw.String())
	require.Equal(t, "AVCC", FormatAVCC.String())
	require.Equal(t, "ANNEXB", FormatAnnexB.String())
}
