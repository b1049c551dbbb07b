// Package mp4io holds the ISO BMFF building blocks used by the mp4 writer: box framing, the
// movie box assembler and a structural reader.
package mp4io

import (
	"fmt"
	"math"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/mp4mux/utils/bits/pio"
)

const (
	// BoxHeaderSize is the size of a compact box header (32-bit size and type).
	BoxHeaderSize = 8
	// MdatHeaderSize is the size of an mdat header carrying a 64-bit size.
	MdatHeaderSize = 16
	// MaxCompactBoxSize is the largest size a compact box header can declare.
	MaxCompactBoxSize = math.MaxUint32
)

// Four character codes of the boxes framed outside of the movie assembler.
var (
	TypeFree = [4]byte{'f', 'r', 'e', 'e'}
	TypeMdat = [4]byte{'m', 'd', 'a', 't'}
	TypeMoov = [4]byte{'m', 'o', 'o', 'v'}
	TypeFtyp = [4]byte{'f', 't', 'y', 'p'}
)

// PutBoxHeader writes a compact box header into b.
func PutBoxHeader(b []byte, size uint32, typ [4]byte) {
	pio.PutU32BE(b, size)
	copy(b[4:BoxHeaderSize], typ[:])
}

// EncodeBox returns payload framed as a box of type typ.
func EncodeBox(typ [4]byte, payload []byte) ([]byte, error) {
	size := uint64(BoxHeaderSize) + uint64(len(payload))
	if size > MaxCompactBoxSize {
		return nil, fmt.Errorf("mp4io: box %q of %d bytes does not fit a compact header", typ[:], size)
	}
	b := make([]byte, size)
	PutBoxHeader(b, uint32(size), typ)
	copy(b[BoxHeaderSize:], payload)
	return b, nil
}

// FreeHeader returns the header of a free box whose total size is size.
func FreeHeader(size uint32) []byte {
	b := make([]byte, BoxHeaderSize)
	PutBoxHeader(b, size, TypeFree)
	return b
}

// Free returns a zero-filled free box of the given total size.
func Free(size int) ([]byte, error) {
	if size < BoxHeaderSize {
		return nil, fmt.Errorf("mp4io: free box of %d bytes is smaller than its header", size)
	}
	return EncodeBox(TypeFree, make([]byte, size-BoxHeaderSize))
}

// WrapFree hides payload inside a free box.
func WrapFree(payload []byte) ([]byte, error) {
	return EncodeBox(TypeFree, payload)
}

// MdatHeader returns an mdat header that declares size bytes through the 64-bit size field.
func MdatHeader(size uint64) []byte {
	b := make([]byte, MdatHeaderSize)
	PutBoxHeader(b, 1, TypeMdat)
	pio.PutU64BE(b[BoxHeaderSize:], size)
	return b
}

// MdatSize returns the 64-bit size field of an mdat header, found BoxHeaderSize bytes into the box.
func MdatSize(size uint64) []byte {
	b := make([]byte, MdatHeaderSize-BoxHeaderSize)
	pio.PutU64BE(b, size)
	return b
}

// FileType returns the leading ftyp box.
func FileType() ([]byte, error) {
	w := newBoxWriter()
	if _, err := w.writeBox(&gomp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 0x200, //nolint:mnd
		CompatibleBrands: []gomp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	}); err != nil {
		return nil, err
	}
	return w.bytes()
}
