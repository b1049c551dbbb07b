package mp4

import (
	"fmt"
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/utils/buffer"
)

// Track is the handle returned by Writer.AddTrack. It queues samples until they are flushed as
// one chunk and keeps the table of persisted samples the moov box is built from.
type Track struct {
	writer  *Writer
	sortKey int
	par     mp4mux.CodecParameters

	pendingInfo []mp4mux.SampleInfo
	pendingData []buffer.PooledBuffer

	written           []mp4mux.SampleInfo
	chunkOffsets      []int64
	chunkSampleCounts []int
}

func newTrack(w *Writer, sortKey int, par mp4mux.CodecParameters) *Track {
	return &Track{
		writer:  w,
		sortKey: sortKey,
		par:     par,
	}
}

// CodecParameters returns the format of the track.
func (t *Track) CodecParameters() mp4mux.CodecParameters {
	return t.par
}

// WrittenSamples returns the samples persisted to the media region, in submission order.
func (t *Track) WrittenSamples() []mp4mux.SampleInfo {
	return t.written
}

// ChunkOffsets returns the absolute file offset of every chunk.
func (t *Track) ChunkOffsets() []int64 {
	return t.chunkOffsets
}

// ChunkSampleCounts returns the number of samples of every chunk.
func (t *Track) ChunkSampleCounts() []int {
	return t.chunkSampleCounts
}

// PendingCount returns the number of samples waiting for a flush.
func (t *Track) PendingCount() int {
	return len(t.pendingInfo)
}

func (t *Track) String() string {
	return fmt.Sprintf("MP4_TRACK key=%d codec=%v", t.sortKey, t.par.Type())
}

func (t *Track) enqueue(data buffer.PooledBuffer, info mp4mux.SampleInfo) {
	t.pendingInfo = append(t.pendingInfo, info)
	t.pendingData = append(t.pendingData, data)
}

// pendingSpanExceeds reports whether the queue holds more than two samples spanning more than d.
func (t *Track) pendingSpanExceeds(d time.Duration) bool {
	if len(t.pendingInfo) <= 2 { //nolint:mnd
		return false
	}
	first := t.pendingInfo[0].PresentationTime
	last := t.pendingInfo[len(t.pendingInfo)-1].PresentationTime
	return last-first > d
}

func (t *Track) pendingBytes() int64 {
	var total int64
	for _, info := range t.pendingInfo {
		total += int64(info.Size)
	}
	return total
}

// releasePending drops queued samples without writing them.
func (t *Track) releasePending() {
	for _, data := range t.pendingData {
		data.Release()
	}
	t.pendingInfo = nil
	t.pendingData = nil
}

func (t *Track) appendWritten(info mp4mux.SampleInfo) {
	t.written = append(t.written, info)
}

func (t *Track) appendChunk(offset int64, count int) {
	t.chunkOffsets = append(t.chunkOffsets, offset)
	t.chunkSampleCounts = append(t.chunkSampleCounts, count)
}

func (t *Track) firstWritten() (mp4mux.SampleInfo, bool) {
	if len(t.written) == 0 {
		return mp4mux.SampleInfo{}, false
	}
	return t.written[0], true
}
