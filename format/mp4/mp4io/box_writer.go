package mp4io

import (
	"io"

	gomp4 "github.com/abema/go-mp4"
	"github.com/orcaman/writerseeker"
)

// boxWriter builds nested boxes in memory. Sizes are patched by go-mp4 when a box is closed.
type boxWriter struct {
	buf *writerseeker.WriterSeeker
	w   *gomp4.Writer
}

func newBoxWriter() *boxWriter {
	w := &boxWriter{
		buf: &writerseeker.WriterSeeker{},
	}
	w.w = gomp4.NewWriter(w.buf)
	return w
}

func (w *boxWriter) writeBoxStart(box gomp4.IImmutableBox) (int, error) {
	bi, err := w.w.StartBox(&gomp4.BoxInfo{Type: box.GetType()})
	if err != nil {
		return 0, err
	}

	if _, err = gomp4.Marshal(w.w, box, gomp4.Context{}); err != nil {
		return 0, err
	}

	return int(bi.Offset), nil //nolint:gosec
}

func (w *boxWriter) writeBoxEnd() error {
	_, err := w.w.EndBox()
	return err
}

func (w *boxWriter) writeBox(box gomp4.IImmutableBox) (int, error) {
	off, err := w.writeBoxStart(box)
	if err != nil {
		return 0, err
	}

	if err = w.writeBoxEnd(); err != nil {
		return 0, err
	}

	return off, nil
}

func (w *boxWriter) bytes() ([]byte, error) {
	return io.ReadAll(w.buf.BytesReader())
}
