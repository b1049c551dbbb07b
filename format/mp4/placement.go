package mp4

import (
	"fmt"
	"math"

	"github.com/ugparu/mp4mux/format/mp4/mp4io"
	"github.com/ugparu/mp4mux/utils/logger"
)

func (w *Writer) writeAt(b []byte, off int64) error {
	if _, err := w.file.WriteAt(b, off); err != nil {
		return fmt.Errorf("mp4: write %d bytes at %d: %w", len(b), off, err)
	}
	return nil
}

// writeHeader writes ftyp, the optional moov reservation and an empty mdat box.
func (w *Writer) writeHeader() error {
	ftyp, err := mp4io.FileType()
	if err != nil {
		return fmt.Errorf("mp4: marshal ftyp: %w", err)
	}
	if err = w.writeAt(ftyp, 0); err != nil {
		return err
	}
	pos := int64(len(ftyp))

	w.state = stateEndPlacement
	if w.conf.AttemptStreamableOutput {
		var free []byte
		if free, err = mp4io.Free(mp4io.BoxHeaderSize + int(w.conf.ReservedMoovSize)); err != nil {
			return err
		}
		if err = w.writeAt(free, pos); err != nil {
			return err
		}
		w.reserved = span{start: pos, end: pos + int64(len(free))}
		pos = w.reserved.end
		w.state = stateStreaming
	}

	w.mdatStart = pos
	if err = w.writeAt(mp4io.MdatHeader(mp4io.MdatHeaderSize), pos); err != nil {
		return err
	}
	w.dataEnd = pos + mp4io.MdatHeaderSize
	w.mdatEnd = w.dataEnd
	if w.state == stateStreaming {
		w.mdatEnd = math.MaxInt64
	}

	logger.Debugf(w, "header written, reservation %d bytes, mdat at %d", w.reserved.len(), w.mdatStart)
	return nil
}

// writeFileTypeOnly leaves a file without samples holding just the ftyp box.
func (w *Writer) writeFileTypeOnly() error {
	ftyp, err := mp4io.FileType()
	if err != nil {
		return fmt.Errorf("mp4: marshal ftyp: %w", err)
	}
	if err = w.writeAt(ftyp, 0); err != nil {
		return err
	}
	if err = w.file.Truncate(int64(len(ftyp))); err != nil {
		return fmt.Errorf("mp4: truncate: %w", err)
	}
	return nil
}

func (w *Writer) updateMdatSize(size int64) error {
	return w.writeAt(mp4io.MdatSize(uint64(size)), w.mdatStart+mp4io.BoxHeaderSize) //nolint:gosec
}

// maybeExtend grows the media region when n more bytes would not fit before the moov box.
func (w *Writer) maybeExtend(n int64) error {
	if w.state != stateEndPlacement {
		return nil
	}
	if w.dataEnd+n < w.mdatEnd {
		return nil
	}
	return w.rewriteMoovWithMdatEmptySpace(w.conf.extension(w.dataEnd) + n)
}

// rewriteMoovWithMdatEmptySpace writes the moov box far enough to leave n free bytes in the
// media region.
func (w *Writer) rewriteMoovWithMdatEmptySpace(n int64) error {
	moov, err := w.assembleMovie()
	if err != nil {
		return err
	}
	return w.safelyReplaceMoovAtEnd(max(w.mdatEnd+n, w.lastMoov.end), moov)
}

// placeFirstMoovAtEnd writes a moov box once the first samples of an end placed file are
// persisted. The growth that made room for them ran before any sample existed and left only an
// empty free box behind the media region.
func (w *Writer) placeFirstMoovAtEnd() error {
	if w.state != stateEndPlacement || w.lastMoov.len() > 0 {
		return nil
	}
	moov, err := w.assembleMovie()
	if err != nil || moov == nil {
		return err
	}
	return w.safelyReplaceMoovAtEnd(max(w.mdatEnd, w.lastMoov.end), moov)
}

// safelyReplaceMoovAtEnd writes moov wrapped in a free box at pos and then extends the mdat box
// over the free header. The previous moov box stays valid until the mdat size is updated.
func (w *Writer) safelyReplaceMoovAtEnd(pos int64, moov []byte) error {
	if pos < w.lastMoov.end {
		return inconsistency("replace moov", "position %d before previous moov end %d", pos, w.lastMoov.end)
	}
	if pos < w.mdatEnd {
		return inconsistency("replace moov", "position %d inside media region ending at %d", pos, w.mdatEnd)
	}

	wrapped, err := mp4io.WrapFree(moov)
	if err != nil {
		return err
	}
	if err = w.writeAt(wrapped, pos); err != nil {
		return err
	}

	w.mdatEnd = pos + mp4io.BoxHeaderSize
	if err = w.updateMdatSize(w.mdatEnd - w.mdatStart); err != nil {
		return err
	}
	w.lastMoov = span{start: w.mdatEnd, end: w.mdatEnd + int64(len(moov))}

	logger.Debugf(w, "moov of %d bytes moved to %d, media region ends at %d", len(moov), w.lastMoov.start, w.mdatEnd)
	return nil
}

// maybeWriteMoovAtStart writes the moov box into the reservation, or abandons streaming and
// places it after the media region when it no longer fits.
func (w *Writer) maybeWriteMoovAtStart() error {
	moov, err := w.assembleMovie()
	if err != nil {
		return err
	}

	if int64(len(moov))+mp4io.BoxHeaderSize <= w.reserved.len() {
		if err = w.writeAt(moov, w.reserved.start); err != nil {
			return err
		}
		rest := w.reserved.end - (w.reserved.start + int64(len(moov)))
		if err = w.writeAt(mp4io.FreeHeader(uint32(rest)), w.reserved.start+int64(len(moov))); err != nil { //nolint:gosec
			return err
		}
		logger.Debugf(w, "moov of %d bytes written at start, %d bytes left", len(moov), rest)
	} else {
		w.state = stateEndPlacement
		w.mdatEnd = w.dataEnd
		if err = w.writeAt(moov, w.mdatEnd); err != nil {
			return err
		}
		w.lastMoov = span{start: w.mdatEnd, end: w.mdatEnd + int64(len(moov))}
		if err = w.writeAt(mp4io.FreeHeader(uint32(w.reserved.len())), w.reserved.start); err != nil { //nolint:gosec
			return err
		}
		logger.Infof(w, "moov of %d bytes exceeds the %d byte reservation, placing it at %d",
			len(moov), w.reserved.len(), w.lastMoov.start)
	}

	return w.updateMdatSize(w.dataEnd - w.mdatStart)
}

// writeMoovAndTrim places the final moov box right after the samples and cuts off the stale
// moov boxes behind it.
func (w *Writer) writeMoovAndTrim() error {
	if w.state == stateStreaming {
		return w.maybeWriteMoovAtStart()
	}

	moov, err := w.assembleMovie()
	if err != nil {
		return err
	}
	need := int64(len(moov)) + mp4io.BoxHeaderSize

	if w.mdatEnd-w.dataEnd < need {
		if err = w.safelyReplaceMoovAtEnd(w.lastMoov.end+need, moov); err != nil {
			return err
		}
		if w.mdatEnd-w.dataEnd < need {
			return inconsistency("trim", "gap of %d bytes cannot hold %d", w.mdatEnd-w.dataEnd, need)
		}
	}

	// the moov box goes into the gap first, inside the still declared media region
	pos := w.dataEnd
	if err = w.writeAt(moov, pos); err != nil {
		return err
	}
	moovEnd := pos + int64(len(moov))

	rest := w.lastMoov.end - moovEnd
	if rest >= math.MaxInt32 {
		return inconsistency("trim", "free box of %d bytes", rest)
	}
	if err = w.writeAt(mp4io.FreeHeader(uint32(rest)), moovEnd); err != nil { //nolint:gosec
		return err
	}

	w.mdatEnd = pos
	if err = w.updateMdatSize(w.mdatEnd - w.mdatStart); err != nil {
		return err
	}
	w.lastMoov = span{start: pos, end: moovEnd}

	if err = w.file.Truncate(moovEnd); err != nil {
		return fmt.Errorf("mp4: truncate: %w", err)
	}

	logger.Debugf(w, "final moov of %d bytes at %d", len(moov), pos)
	return nil
}
