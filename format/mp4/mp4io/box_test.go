package mp4io

import (
	"bytes"
	"testing"

	gomp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

func TestEncodeBox(t *testing.T) {
	t.Parallel()

	b, err := EncodeBox(TypeMoov, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 11, 'm', 'o', 'o', 'v', 1, 2, 3}, b)
}

func TestFree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		want    []byte
		wantErr bool
	}{
		{name: "header_only", size: 8, want: []byte{0, 0, 0, 8, 'f', 'r', 'e', 'e'}},
		{name: "padded", size: 10, want: []byte{0, 0, 0, 10, 'f', 'r', 'e', 'e', 0, 0}},
		{name: "too_small", size: 7, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := Free(tt.size)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, b)
		})
	}
}

func TestWrapFree(t *testing.T) {
	t.Parallel()

	b, err := WrapFree([]byte{'x'})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 9, 'f', 'r', 'e', 'e', 'x'}, b)
	require.Equal(t, b[:BoxHeaderSize], FreeHeader(9))
}

func TestMdatHeader(t *testing.T) {
	t.Parallel()

	b := MdatHeader(0x1_0000_0010)
	require.Equal(t, []byte{
		0, 0, 0, 1, 'm', 'd', 'a', 't',
		0, 0, 0, 1, 0, 0, 0, 0x10,
	}, b)
	require.Equal(t, b[BoxHeaderSize:], MdatSize(0x1_0000_0010))
}

func TestFileType(t *testing.T) {
	t.Parallel()

	b, err := FileType()
	require.NoError(t, err)
	require.Equal(t, TypeFtyp[:], b[4:8])

	bips, err := gomp4.ExtractBoxWithPayload(bytes.NewReader(b), nil, gomp4.BoxPath{gomp4.BoxTypeFtyp()})
	require.NoError(t, err)
	require.Len(t, bips, 1)
	require.Equal(t, uint64(len(b)), bips[0].Info.Size)

	ftyp, ok := bips[0].Payload.(*gomp4.Ftyp)
	require.True(t, ok)
	require.Equal(t, [4]byte{'i', 's', 'o', 'm'}, ftyp.MajorBrand)
	require.True(t, ftyp.HasCompatibleBrand([4]byte{'m', 'p', '4', '1'}))
}
