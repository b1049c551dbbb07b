package mp4io

import (
	"errors"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/mp4mux"
)

// MovieTimeScale is the timescale of mvhd, tkhd and elst durations.
const MovieTimeScale = 1000

// ErrFragmented is returned when a fragmented movie is requested.
var ErrFragmented = errors.New("mp4io: fragmented movies are not supported")

// Track is the read-only view of a track the movie assembler describes.
type Track interface {
	CodecParameters() mp4mux.CodecParameters
	WrittenSamples() []mp4mux.SampleInfo
	ChunkOffsets() []int64
	ChunkSampleCounts() []int
}

var identityMatrix = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

// MarshalMovie builds the moov box describing tracks. minPTS is the earliest presentation
// timestamp of the movie; tracks starting later get an empty edit. The result is nil when no
// track holds a sample.
func MarshalMovie(tracks []Track, minPTS time.Duration, fragmented bool) ([]byte, error) {
	if fragmented {
		return nil, ErrFragmented
	}

	hasSamples := false
	for _, t := range tracks {
		if len(t.WrittenSamples()) > 0 {
			hasSamples = true
			break
		}
	}
	if !hasSamples {
		return nil, nil
	}

	/*
		|moov|
		|    |mvhd|
		|    |trak|
	*/

	w := newBoxWriter()

	if _, err := w.writeBoxStart(&gomp4.Moov{}); err != nil { // <moov>
		return nil, err
	}

	layouts := make([]trackLayout, len(tracks))
	var movieDuration int64
	for i, t := range tracks {
		layouts[i] = newTrackLayout(uint32(i+1), t, minPTS) //nolint:gosec
		movieDuration = max(movieDuration, layouts[i].duration)
	}

	mvhd := &gomp4.Mvhd{
		Timescale:   MovieTimeScale,
		Rate:        65536,
		Volume:      256,
		Matrix:      identityMatrix,
		NextTrackID: uint32(len(tracks) + 1), //nolint:gosec
	}
	setDuration(&mvhd.FullBox, &mvhd.DurationV0, &mvhd.DurationV1, movieDuration)
	if _, err := w.writeBox(mvhd); err != nil { // <mvhd/>
		return nil, err
	}

	for _, l := range layouts {
		if err := w.writeTrack(l); err != nil {
			return nil, err
		}
	}

	if err := w.writeBoxEnd(); err != nil { // </moov>
		return nil, err
	}

	return w.bytes()
}

// MovieAssemblerFunc adapts MarshalMovie-like functions to the writer's assembler hook.
type MovieAssemblerFunc func(tracks []Track, minPTS time.Duration, fragmented bool) ([]byte, error)

// AssembleMovie calls f.
func (f MovieAssemblerFunc) AssembleMovie(tracks []Track, minPTS time.Duration, fragmented bool) ([]byte, error) {
	return f(tracks, minPTS, fragmented)
}
