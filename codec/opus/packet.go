package opus

import (
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
	"github.com/ugparu/mp4mux/utils/buffer"
)

type Packet struct {
	codec.AudioPacket[*CodecParameters]
}

// NewPacket creates a new Opus packet with the given parameters
func NewPacket(data []byte, ts time.Duration, url string, codecPar *CodecParameters, duration time.Duration) *Packet {
	return &Packet{
		AudioPacket: codec.AudioPacket[*CodecParameters]{
			BasePacket: codec.NewBasePacket(
				codecPar.StreamIndex(),
				ts,
				duration,
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
