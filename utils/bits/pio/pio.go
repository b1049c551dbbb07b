// Package pio reads and writes big-endian integers at the head of byte slices.
package pio

// RecommendBufioSize is the buffer size used for buffered box writers.
const RecommendBufioSize = 1024 * 64

func U8(b []byte) uint8 {
	return b[0]
}

func U16BE(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func U24BE(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func U32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func U64BE(b []byte) uint64 {
	return uint64(U32BE(b))<<32 | uint64(U32BE(b[4:]))
}

func PutU8(b []byte, v uint8) {
	b[0] = v
}

func PutU16BE(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func PutU24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func PutU32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func PutU64BE(b []byte, v uint64) {
	PutU32BE(b, uint32(v>>32))
	PutU32BE(b[4:], uint32(v))
}
