package mjpeg

import (
	"fmt"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
)

// CodecParameters represents MJPEG codec parameters
type CodecParameters struct {
	codec.BaseParameters
	width  uint
	height uint
	fps    uint
}

func NewCodecParameters(width, height, fps uint) *CodecParameters {
	codecPar := &CodecParameters{
		width:  width,
		height: height,
		fps:    fps,
	}
	codecPar.CodecType = mp4mux.MJPEG
	codecPar.BRate = width * height * fps / 2 //nolint:mnd

	return codecPar
}

func (par *CodecParameters) Width() uint {
	return par.width
}

func (par *CodecParameters) Height() uint {
	return par.height
}

func (par *CodecParameters) FPS() uint {
	return par.fps
}

func (par *CodecParameters) Tag() string {
	return fmt.Sprintf("mjpeg.%dx%d", par.width, par.height)
}
