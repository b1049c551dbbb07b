package aac

import (
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
	"github.com/ugparu/mp4mux/utils/buffer"
)

// Packet stores raw aac data without adts headers.
type Packet struct {
	codec.AudioPacket[*CodecParameters]
}

func NewPacket(data []byte, ts time.Duration, url string, codecPar *CodecParameters, dur time.Duration) *Packet {
	return &Packet{
		AudioPacket: codec.AudioPacket[*CodecParameters]{
			BasePacket: codec.NewBasePacket(
				codecPar.StreamIndex(),
				ts,
				dur,
				url,
				buffer.Clone(data),
				codecPar,
			),
		},
	}
}

func (p *Packet) Clone(copyData bool) mp4mux.Packet {
	return &Packet{
		AudioPacket: p.AudioPacket.Clone(copyData),
	}
}
