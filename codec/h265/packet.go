package h265

import (
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
	"github.com/ugparu/mp4mux/utils/buffer"
)

type Packet struct {
	codec.VideoPacket[*CodecParameters]
}

func NewPacket(key bool, timestamp time.Duration, data []byte, url string, param *CodecParameters) *Packet {
	return &Packet{
		VideoPacket: codec.VideoPacket[*CodecParameters]{
			BasePacket: codec.NewBasePacket(
				param.StreamIndex(),
				timestamp,
				0,
				url,
				buffer.Clone(data),
				param,
			),
			IsKeyFrm: key,
		},
	}
}

func (pkt *Packet) Clone(copyData bool) mp4mux.Packet {
	return &Packet{
		VideoPacket: pkt.VideoPacket.Clone(copyData),
	}
}
