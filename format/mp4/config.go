package mp4

import (
	"errors"
	"math"
	"time"

	"github.com/ugparu/mp4mux/format/mp4/mp4io"
)

// Defaults of Config.
const (
	DefaultReservedMoovSize   = 400_000
	DefaultInterleaveDuration = time.Second
	DefaultMinExtension       = 500_000
	DefaultMaxExtension       = 1_000_000_000
	DefaultExtensionRatio     = 0.2
)

// MovieAssembler builds the moov box from the tracks of a writer.
type MovieAssembler interface {
	AssembleMovie(tracks []mp4io.Track, minPTS time.Duration, fragmented bool) ([]byte, error)
}

// Config tunes the placement of the moov box and the growth of the media region.
type Config struct {
	// AttemptStreamableOutput reserves space after ftyp so the moov box can precede the media.
	AttemptStreamableOutput bool `yaml:"attempt_streamable_output"`
	// ReservedMoovSize is the payload size of the leading reservation.
	ReservedMoovSize int64 `yaml:"reserved_moov_size"`
	// SampleCopy copies sample payloads on submission so callers may reuse their slices.
	SampleCopy bool `yaml:"sample_copy"`
	// InterleaveDuration is the span of pending samples that forces a track flush.
	InterleaveDuration time.Duration `yaml:"interleave_duration"`
	MinExtension       int64         `yaml:"min_extension"`
	MaxExtension       int64         `yaml:"max_extension"`
	ExtensionRatio     float64       `yaml:"extension_ratio"`

	// MovieAssembler defaults to mp4io.MarshalMovie.
	MovieAssembler MovieAssembler `yaml:"-"`
}

// DefaultConfig returns the settings used when nothing is tuned.
func DefaultConfig() Config {
	return Config{
		AttemptStreamableOutput: true,
		ReservedMoovSize:        DefaultReservedMoovSize,
		SampleCopy:              true,
		InterleaveDuration:      DefaultInterleaveDuration,
		MinExtension:            DefaultMinExtension,
		MaxExtension:            DefaultMaxExtension,
		ExtensionRatio:          DefaultExtensionRatio,
	}
}

// Validate reports the first setting that cannot drive a writer.
func (c Config) Validate() error {
	switch {
	case c.ReservedMoovSize <= 0:
		return errors.New("mp4: reserved moov size must be positive")
	case c.InterleaveDuration <= 0:
		return errors.New("mp4: interleave duration must be positive")
	case c.MinExtension <= 0 || c.MaxExtension <= 0:
		return errors.New("mp4: extension bounds must be positive")
	case c.MinExtension > c.MaxExtension:
		return errors.New("mp4: min extension exceeds max extension")
	case c.MaxExtension >= math.MaxInt32:
		return errors.New("mp4: max extension must fit a free box")
	case c.ReservedMoovSize > math.MaxInt32-mp4io.BoxHeaderSize:
		return errors.New("mp4: reserved moov size must fit a free box")
	case c.ExtensionRatio <= 0 || c.ExtensionRatio > 1:
		return errors.New("mp4: extension ratio must be in (0, 1]")
	}
	return nil
}

func (c Config) movieAssembler() MovieAssembler {
	if c.MovieAssembler != nil {
		return c.MovieAssembler
	}
	return mp4io.MovieAssemblerFunc(mp4io.MarshalMovie)
}

// extension returns how far the media region grows for a file of the given length.
func (c Config) extension(fileLength int64) int64 {
	ext := int64(c.ExtensionRatio * float64(fileLength))
	return min(c.MaxExtension, max(c.MinExtension, ext))
}
