package mjpeg

import (
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/codec"
	"github.com/ugparu/mp4mux/utils/buffer"
)

// Packet carries one JPEG picture.
type Packet struct {
	codec.VideoPacket[*CodecParameters]
}

// NewPacket creates a new MJPEG packet. Every picture is a sync sample.
func NewPacket(timestamp time.Duration, data []byte, url string, param *CodecParameters) *Packet {
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
			IsKeyFrm: true,
		},
	}
}

func (pkt *Packet) Clone(copyData bool) mp4mux.Packet {
	return &Packet{
		VideoPacket: pkt.VideoPacket.Clone(copyData),
	}
}
