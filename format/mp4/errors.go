package mp4

import (
	"errors"
	"fmt"

	"github.com/ugparu/mp4mux"
)

var (
	// ErrClosed is returned by every call made after Close.
	ErrClosed = errors.New("mp4: writer is closed")
	// ErrUnknownTrack is returned for a track that was not added to this writer.
	ErrUnknownTrack = errors.New("mp4: unknown track")
)

// UnsupportedCodecError rejects a track the movie assembler cannot describe.
type UnsupportedCodecError struct {
	Type mp4mux.CodecType
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("mp4: codec type=%v is not supported", e.Type)
}

// InvalidSampleError rejects a sample at submission.
type InvalidSampleError struct {
	Reason string
}

func (e *InvalidSampleError) Error() string {
	return "mp4: invalid sample: " + e.Reason
}

// InconsistencyError reports a broken placement invariant. The writer fails permanently.
type InconsistencyError struct {
	Op     string
	Detail string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("mp4: %s: internal inconsistency: %s", e.Op, e.Detail)
}

func inconsistency(op, format string, args ...any) error {
	return &InconsistencyError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
