package nal

import (
	"github.com/ugparu/mp4mux/utils/bits/pio"
)

// Format describes how NAL units are delimited inside a sample.
type Format int

// NAL unit framings.
const (
	FormatRaw    Format = iota // A single NAL unit without framing.
	FormatAVCC                 // 4-byte big-endian length prefixes.
	FormatAnnexB               // 3 or 4 byte start codes.
)

func (f Format) String() string {
	switch f {
	case FormatAVCC:
		return "AVCC"
	case FormatAnnexB:
		return "ANNEXB"
	}
	return "RAW"
}

// MinNaluSize is the size of an AVCC length prefix.
const MinNaluSize = 4

// isStartCode checks if there's a NALU start code (0x000001 or 0x00000001) at the given position
// and returns the length of the start code found.
func isStartCode(b []byte, pos int) (startCodeLength int, found bool) {
	if pos+2 >= len(b) || b[pos] != 0 {
		return 0, false
	}

	val3 := pio.U24BE(b[pos:])
	if val3 == 1 {
		return 3, true //nolint:mnd
	}

	if val3 == 0 && pos+3 < len(b) && b[pos+3] == 1 {
		return 4, true //nolint:mnd
	}

	return 0, false
}

// HasStartCode reports whether b begins with an Annex-B start code.
func HasStartCode(b []byte) bool {
	_, found := isStartCode(b, 0)
	return found
}

// IsAVCC reports whether b is an exact sequence of length-prefixed NAL units.
func IsAVCC(b []byte) bool {
	if len(b) < MinNaluSize {
		return false
	}
	for len(b) > 0 {
		if len(b) < MinNaluSize {
			return false
		}
		size := uint64(pio.U32BE(b))
		b = b[MinNaluSize:]
		if size == 0 || size > uint64(len(b)) {
			return false
		}
		b = b[size:]
	}
	return true
}

// IsAnnexB reports whether b must be treated as a start-code delimited access unit.
// A buffer that is also a valid length-prefixed sequence is left alone.
func IsAnnexB(b []byte) bool {
	return HasStartCode(b) && !IsAVCC(b)
}

// SplitAnnexB returns the NAL units of a start-code delimited buffer. The units alias b.
func SplitAnnexB(b []byte) [][]byte {
	var nalus [][]byte
	start, pos := 0, 0
	for pos < len(b) {
		startCodeLength, found := isStartCode(b, pos)
		if !found {
			pos++
			continue
		}
		if pos > start {
			nalus = append(nalus, b[start:pos])
		}
		pos += startCodeLength
		start = pos
	}
	if start < len(b) {
		nalus = append(nalus, b[start:])
	}
	return nalus
}

func splitAVCC(b []byte) [][]byte {
	var nalus [][]byte
	for len(b) >= MinNaluSize {
		size := pio.U32BE(b)
		b = b[MinNaluSize:]
		if uint64(size) > uint64(len(b)) {
			// salvage the tail of a truncated unit
			if len(b) > 0 {
				nalus = append(nalus, b)
			}
			break
		}
		if size > 0 {
			nalus = append(nalus, b[:size])
		}
		b = b[size:]
	}
	return nalus
}

// SplitNALUs splits a byte slice into NAL units and reports the framing it detected.
// Start codes take precedence unless the buffer is a valid length-prefixed sequence.
func SplitNALUs(b []byte) (nalus [][]byte, typ Format) {
	if len(b) < MinNaluSize {
		return [][]byte{b}, FormatRaw
	}

	if IsAnnexB(b) {
		return SplitAnnexB(b), FormatAnnexB
	}

	if pio.U32BE(b) <= uint32(len(b)-MinNaluSize) { //nolint:gosec
		if nalus = splitAVCC(b); len(nalus) > 0 {
			return nalus, FormatAVCC
		}
	}

	return [][]byte{b}, FormatRaw
}
