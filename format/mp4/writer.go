// Package mp4 writes progressive MP4 files incrementally. Samples are interleaved into a single
// media region while the moov box is kept valid after every flush, either in space reserved at
// the start of the file or after the media region.
package mp4

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/format/mp4/mp4io"
	"github.com/ugparu/mp4mux/utils/buffer"
	"github.com/ugparu/mp4mux/utils/logger"
)

// File is the output of a Writer. *os.File satisfies it.
type File interface {
	WriteAt(p []byte, off int64) (n int, err error)
	Truncate(size int64) error
	Close() error
}

type state int

const (
	stateNotStarted   state = iota // nothing written yet
	stateStreaming                 // moov lives in the reservation after ftyp
	stateEndPlacement              // moov lives after the media region
	stateClosed
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateNotStarted:
		return "NOT_STARTED"
	case stateStreaming:
		return "STREAMING"
	case stateEndPlacement:
		return "END_PLACEMENT"
	case stateClosed:
		return "CLOSED"
	case stateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// span is a half-open byte range of the output file.
type span struct {
	start, end int64
}

func (s span) len() int64 {
	return s.end - s.start
}

// Writer builds a progressive MP4 file from samples of several tracks. It is not safe for
// concurrent use.
type Writer struct {
	file      File
	conf      Config
	assembler MovieAssembler

	state state
	err   error // terminal failure, returned by every later call

	tracks []*Track // ordered by sort key

	reserved  span  // leading free box that may receive the moov box
	mdatStart int64 // offset of the mdat header
	dataEnd   int64 // end of the persisted samples
	mdatEnd   int64 // end of the declared media region, unbounded while streaming
	lastMoov  span  // most recently written moov box
}

// NewWriter returns a writer that owns f. Nothing is written before the first flush.
func NewWriter(f File, conf Config) (*Writer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Writer{
		file:      f,
		conf:      conf,
		assembler: conf.movieAssembler(),
	}, nil
}

// Create truncates or creates the file at path and returns a writer for it.
func Create(path string, conf Config) (*Writer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("mp4: %w", err)
	}
	return NewWriter(f, conf)
}

func (w *Writer) String() string {
	return fmt.Sprintf("MP4_WRITER state=%v tracks=%d", w.state, len(w.tracks))
}

func (w *Writer) usable() error {
	switch w.state {
	case stateClosed:
		return ErrClosed
	case stateFailed:
		return w.err
	}
	return nil
}

// fail moves the writer into the failed state. Validation errors never reach it.
func (w *Writer) fail(err error) error {
	if err == nil {
		return nil
	}
	w.state = stateFailed
	w.err = err
	return err
}

// AddTrack registers a track. Tracks are described in the moov box by ascending sort key,
// keeping insertion order among equal keys.
func (w *Writer) AddTrack(sortKey int, par mp4mux.CodecParameters) (*Track, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if par == nil {
		return nil, errors.New("mp4: codec parameters are required")
	}
	if !mp4io.SupportsCodec(par) {
		return nil, &UnsupportedCodecError{Type: par.Type()}
	}

	track := newTrack(w, sortKey, par)
	idx := slices.IndexFunc(w.tracks, func(t *Track) bool { return t.sortKey > sortKey })
	if idx < 0 {
		idx = len(w.tracks)
	}
	w.tracks = slices.Insert(w.tracks, idx, track)

	logger.Debugf(w, "added %v at position %d", track, idx)
	return track, nil
}

// WriteSampleData queues one sample of track and flushes tracks whose pending samples span more
// than the interleave duration. Without SampleCopy, data must not be modified afterwards.
func (w *Writer) WriteSampleData(track *Track, data []byte, info mp4mux.SampleInfo) error {
	if err := w.usable(); err != nil {
		return err
	}
	if track == nil || track.writer != w {
		return ErrUnknownTrack
	}
	if len(data) == 0 {
		return &InvalidSampleError{Reason: "empty sample"}
	}
	if info.Size != len(data) {
		return &InvalidSampleError{Reason: fmt.Sprintf("declared size %d, payload has %d bytes", info.Size, len(data))}
	}

	if w.conf.SampleCopy {
		track.enqueue(buffer.Clone(data), info)
	} else {
		track.enqueue(buffer.Wrap(data), info)
	}

	return w.fail(w.interleave())
}

// interleave flushes every track whose pending samples span too much media time.
func (w *Writer) interleave() error {
	flushed := false
	for _, t := range w.tracks {
		if !t.pendingSpanExceeds(w.conf.InterleaveDuration) {
			continue
		}
		if err := w.flushPending(t); err != nil {
			return err
		}
		flushed = true
	}
	if flushed && w.state == stateStreaming {
		return w.maybeWriteMoovAtStart()
	}
	return nil
}

// flushPending writes the queued samples of t as one chunk.
func (w *Writer) flushPending(t *Track) error {
	if len(t.pendingInfo) != len(t.pendingData) {
		return inconsistency("flush", "%d pending samples with %d buffers", len(t.pendingInfo), len(t.pendingData))
	}
	if len(t.pendingInfo) == 0 {
		return nil
	}

	if w.state == stateNotStarted {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	if err := w.maybeExtend(t.pendingBytes()); err != nil {
		return err
	}

	infos, data := t.pendingInfo, t.pendingData
	t.pendingInfo, t.pendingData = nil, nil
	defer func() {
		for _, d := range data {
			d.Release()
		}
	}()

	chunkStart := w.dataEnd
	for i, info := range infos {
		sample, err := reformatSample(t.par, data[i].Data())
		if err != nil {
			return fmt.Errorf("mp4: reformat sample: %w", err)
		}
		info.Size = len(sample)

		// conversion may have grown the sample
		if err = w.maybeExtend(int64(len(sample))); err != nil {
			return err
		}
		if err = w.writeAt(sample, w.dataEnd); err != nil {
			return err
		}
		w.dataEnd += int64(len(sample))

		// the chunk becomes visible with its first sample so intermediate moov boxes stay consistent
		if i == 0 {
			t.appendChunk(chunkStart, 1)
		} else {
			t.chunkSampleCounts[len(t.chunkSampleCounts)-1]++
		}
		t.appendWritten(info)
	}

	if w.dataEnd > w.mdatEnd {
		return inconsistency("flush", "data end %d beyond media region end %d", w.dataEnd, w.mdatEnd)
	}
	if err := w.placeFirstMoovAtEnd(); err != nil {
		return err
	}

	logger.Debugf(w, "flushed %d samples of %v, chunk at %d, data end %d", len(infos), t, chunkStart, w.dataEnd)
	return nil
}

// assembleMovie builds the moov box from the current track state. It returns nil while no sample
// has been written.
func (w *Writer) assembleMovie() ([]byte, error) {
	tracks := make([]mp4io.Track, 0, len(w.tracks))
	minPTS := time.Duration(math.MaxInt64)
	hasSamples := false
	for _, t := range w.tracks {
		tracks = append(tracks, t)
		if first, ok := t.firstWritten(); ok {
			minPTS = min(minPTS, first.PresentationTime)
			hasSamples = true
		}
	}
	if !hasSamples {
		return nil, nil
	}

	moov, err := w.assembler.AssembleMovie(tracks, minPTS, false)
	if err != nil {
		return nil, fmt.Errorf("mp4: assemble moov: %w", err)
	}
	return moov, nil
}

// Close flushes every track, places the final moov box and trims the file. The file is closed
// even when finalization fails; the first error is returned.
func (w *Writer) Close() (err error) {
	switch w.state {
	case stateClosed:
		return ErrClosed
	case stateFailed:
		w.releasePending()
		w.state = stateClosed
		if cerr := w.file.Close(); cerr != nil {
			logger.Errorf(w, "close file: %v", cerr)
		}
		return w.err
	}

	defer func() {
		w.releasePending()
		if cerr := w.file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("mp4: close file: %w", cerr)
		}
		if err != nil {
			logger.Errorf(w, "close failed: %v", err)
		}
		w.state = stateClosed
	}()

	for _, t := range w.tracks {
		if err = w.flushPending(t); err != nil {
			return w.fail(err)
		}
	}

	if w.state == stateNotStarted {
		return w.fail(w.writeFileTypeOnly())
	}
	return w.fail(w.writeMoovAndTrim())
}

func (w *Writer) releasePending() {
	for _, t := range w.tracks {
		t.releasePending()
	}
}
