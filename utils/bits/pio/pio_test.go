package pio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBigEndian(t *testing.T) {
	t.Parallel()

	t.Run("u24", func(t *testing.T) {
		t.Parallel()
		b := make([]byte, 3)
		PutU24BE(b, 0x010203)
		require.Equal(t, []byte{1, 2, 3}, b)
		require.Equal(t, uint32(0x010203), U24BE(b))
	})

	t.Run("u32", func(t *testing.T) {
		t.Parallel()
		b := make([]byte, 4)
		PutU32BE(b, 0xdeadbeef)
		require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)
		require.Equal(t, uint32(0xdeadbeef), U32BE(b))
	})

	t.Run("u64", func(t *testing.T) {
		t.Parallel()
		b := make([]byte, 8)
		PutU64BE(b, 0x0102030405060708)
		require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b)
		require.Equal(t, uint64(0x0102030405060708), U64BE(b))
	})

	t.Run("u16_u8", func(t *testing.T) {
		t.Parallel()
		b := make([]byte, 3)
		PutU16BE(b, 0xabcd)
		PutU8(b[2:], 0x7f)
		require.Equal(t, uint16(0xabcd), U16BE(b))
		require.Equal(t, uint8(0x7f), U8(b[2:]))
	})
}
