package mp4io

import (
	"math"
	"slices"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/ugparu/mp4mux"
)

// durationGoToMp4 converts a duration into the nearest tick of timeScale without overflowing on
// long inputs.
func durationGoToMp4(v time.Duration, timeScale uint32) int64 {
	timeScale64 := int64(timeScale)
	secs := v / time.Second
	dec := int64(v%time.Second) * timeScale64
	half := int64(time.Second / 2)
	if dec < 0 {
		half = -half
	}
	return int64(secs)*timeScale64 + (dec+half)/int64(time.Second)
}

// sampleTable holds the per-sample timing of one track in media ticks.
type sampleTable struct {
	durations []uint32 // decode durations, one per sample
	offsets   []int32  // composition offsets, one per sample
	duration  int64    // sum of durations
	firstPTS  time.Duration
}

// newSampleTable derives decode timing from presentation timestamps. Decode times are the sorted
// presentation times; each duration is the distance to the next decode time and the last sample
// repeats its predecessor's duration.
func newSampleTable(samples []mp4mux.SampleInfo, timeScale uint32, lastDelta uint32) sampleTable {
	st := sampleTable{}
	if len(samples) == 0 {
		return st
	}

	st.firstPTS = samples[0].PresentationTime
	for _, s := range samples[1:] {
		st.firstPTS = min(st.firstPTS, s.PresentationTime)
	}

	pts := make([]int64, len(samples))
	for i, s := range samples {
		pts[i] = durationGoToMp4(s.PresentationTime-st.firstPTS, timeScale)
	}
	dts := slices.Clone(pts)
	slices.Sort(dts)

	st.durations = make([]uint32, len(samples))
	st.offsets = make([]int32, len(samples))
	for i := range samples {
		switch {
		case i+1 < len(samples):
			st.durations[i] = clampUint32(dts[i+1] - dts[i])
		case i > 0:
			st.durations[i] = st.durations[i-1]
		default:
			st.durations[i] = lastDelta
		}
		st.duration += int64(st.durations[i])
		st.offsets[i] = clampInt32(pts[i] - dts[i])
	}

	return st
}

func clampUint32(v int64) uint32 {
	return uint32(min(max(v, 0), math.MaxUint32)) //nolint:gosec
}

func clampInt32(v int64) int32 {
	return int32(min(max(v, math.MinInt32), math.MaxInt32)) //nolint:gosec
}

func (st sampleTable) stts() *gomp4.Stts {
	box := &gomp4.Stts{}
	for _, d := range st.durations {
		if n := len(box.Entries); n > 0 && box.Entries[n-1].SampleDelta == d {
			box.Entries[n-1].SampleCount++
			continue
		}
		box.Entries = append(box.Entries, gomp4.SttsEntry{SampleCount: 1, SampleDelta: d})
	}
	box.EntryCount = uint32(len(box.Entries)) //nolint:gosec
	return box
}

// ctts returns nil when presentation order equals decode order.
func (st sampleTable) ctts() *gomp4.Ctts {
	if !slices.ContainsFunc(st.offsets, func(o int32) bool { return o != 0 }) {
		return nil
	}

	box := &gomp4.Ctts{
		FullBox: gomp4.FullBox{
			Version: 1,
		},
	}
	for _, o := range st.offsets {
		if n := len(box.Entries); n > 0 && box.Entries[n-1].SampleOffsetV1 == o {
			box.Entries[n-1].SampleCount++
			continue
		}
		box.Entries = append(box.Entries, gomp4.CttsEntry{SampleCount: 1, SampleOffsetV1: o})
	}
	box.EntryCount = uint32(len(box.Entries)) //nolint:gosec
	return box
}

// stss returns nil when every sample is a sync sample.
func stss(samples []mp4mux.SampleInfo) *gomp4.Stss {
	box := &gomp4.Stss{}
	allSync := true
	for i, s := range samples {
		if !s.IsSync() {
			allSync = false
			continue
		}
		box.SampleNumber = append(box.SampleNumber, uint32(i+1)) //nolint:gosec
	}
	if allSync {
		return nil
	}
	box.EntryCount = uint32(len(box.SampleNumber)) //nolint:gosec
	return box
}

func stsc(chunkSampleCounts []int) *gomp4.Stsc {
	box := &gomp4.Stsc{}
	for i, count := range chunkSampleCounts {
		if n := len(box.Entries); n > 0 && box.Entries[n-1].SamplesPerChunk == uint32(count) { //nolint:gosec
			continue
		}
		box.Entries = append(box.Entries, gomp4.StscEntry{
			FirstChunk:             uint32(i + 1), //nolint:gosec
			SamplesPerChunk:        uint32(count), //nolint:gosec
			SampleDescriptionIndex: 1,
		})
	}
	box.EntryCount = uint32(len(box.Entries)) //nolint:gosec
	return box
}

func stsz(samples []mp4mux.SampleInfo) *gomp4.Stsz {
	box := &gomp4.Stsz{
		SampleCount: uint32(len(samples)), //nolint:gosec
		EntrySize:   make([]uint32, len(samples)),
	}
	for i, s := range samples {
		box.EntrySize[i] = uint32(s.Size) //nolint:gosec
	}
	return box
}

// chunkOffsetBox returns stco, or co64 once an offset no longer fits 32 bits.
func chunkOffsetBox(offsets []int64) gomp4.IImmutableBox {
	if slices.ContainsFunc(offsets, func(o int64) bool { return o > math.MaxUint32 }) {
		box := &gomp4.Co64{
			EntryCount:  uint32(len(offsets)), //nolint:gosec
			ChunkOffset: make([]uint64, len(offsets)),
		}
		for i, o := range offsets {
			box.ChunkOffset[i] = uint64(o) //nolint:gosec
		}
		return box
	}

	box := &gomp4.Stco{
		EntryCount:  uint32(len(offsets)), //nolint:gosec
		ChunkOffset: make([]uint32, len(offsets)),
	}
	for i, o := range offsets {
		box.ChunkOffset[i] = uint32(o) //nolint:gosec
	}
	return box
}
