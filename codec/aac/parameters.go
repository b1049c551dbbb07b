package aac

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
)

// SamplesPerFrame is the number of PCM samples carried by one AAC-LC access unit.
const SamplesPerFrame = 1024

var ErrInvalidConfig = errors.New("aacparser: sample rate and channel count must be positive")

type CodecParameters struct {
	codec.BaseParameters
	ConfigBytes []byte
	Config      mpeg4audio.Config
}

// NewCodecParameters parses an AudioSpecificConfig.
func NewCodecParameters(config []byte) (*CodecParameters, error) {
	cod := &CodecParameters{ConfigBytes: slices.Clone(config)}
	if err := cod.Config.Unmarshal(cod.ConfigBytes); err != nil {
		return nil, fmt.Errorf("aacparser: parse MPEG4AudioConfig failed(%w)", err)
	}
	if err := cod.init(); err != nil {
		return nil, err
	}
	return cod, nil
}

// NewCodecParametersFromConfig encodes config and keeps both representations.
func NewCodecParametersFromConfig(config mpeg4audio.Config) (*CodecParameters, error) {
	b, err := config.Marshal()
	if err != nil {
		return nil, fmt.Errorf("aacparser: marshal MPEG4AudioConfig failed(%w)", err)
	}
	cod := &CodecParameters{ConfigBytes: b, Config: config}
	if err = cod.init(); err != nil {
		return nil, err
	}
	return cod, nil
}

func (cd *CodecParameters) init() error {
	if cd.Config.SampleRate <= 0 || cd.Config.ChannelCount <= 0 {
		return ErrInvalidConfig
	}
	cd.CodecType = mp4mux.AAC
	return nil
}

func (cd *CodecParameters) MPEG4AudioConfigBytes() []byte {
	return cd.ConfigBytes
}

func (cd *CodecParameters) SampleRate() uint64 {
	return uint64(cd.Config.SampleRate) //nolint:gosec // sample rate is checked to be positive
}

func (cd *CodecParameters) Channels() uint8 {
	return uint8(cd.Config.ChannelCount) //nolint:gosec // channel count never exceeds 8
}

// FrameDuration returns the playback time of one access unit.
func (cd *CodecParameters) FrameDuration() time.Duration {
	return time.Duration(SamplesPerFrame) * time.Second / time.Duration(cd.Config.SampleRate)
}

func (cd *CodecParameters) Tag() string {
	return fmt.Sprintf("mp4a.40.%d", cd.Config.Type)
}
