package codec

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/utils/buffer"
)

// sharedBuffer holds the payload and the number of packets referencing it.
type sharedBuffer struct {
	buf buffer.PooledBuffer
	ref int32
}

type BasePacket[T mp4mux.CodecParameters] struct {
	Idx          uint8
	RelativeTime time.Duration
	Dur          time.Duration
	InpURL       string
	shared       *sharedBuffer
	CodecPar     T
}

// NewBasePacket creates a packet that owns buf.
func NewBasePacket[T mp4mux.CodecParameters](
	idx uint8,
	relativeTime time.Duration,
	dur time.Duration,
	url string,
	buf buffer.PooledBuffer,
	codecPar T,
) BasePacket[T] {
	return BasePacket[T]{
		Idx:          idx,
		RelativeTime: relativeTime,
		Dur:          dur,
		InpURL:       url,
		shared:       &sharedBuffer{buf: buf, ref: 1},
		CodecPar:     codecPar,
	}
}

func (pkt *BasePacket[T]) Clone(copyData bool) BasePacket[T] {
	newPkt := BasePacket[T]{
		Idx:          pkt.Idx,
		RelativeTime: pkt.RelativeTime,
		Dur:          pkt.Dur,
		InpURL:       pkt.InpURL,
		CodecPar:     pkt.CodecPar,
	}
	if copyData {
		newPkt.shared = &sharedBuffer{buf: buffer.Clone(pkt.Data()), ref: 1}
	} else {
		atomic.AddInt32(&pkt.shared.ref, 1)
		newPkt.shared = pkt.shared
	}
	return newPkt
}

func (pkt *BasePacket[T]) Data() []byte {
	if pkt.shared == nil || pkt.shared.buf == nil {
		return nil
	}
	return pkt.shared.buf.Data()
}

func (pkt *BasePacket[T]) Len() int {
	if pkt.shared == nil || pkt.shared.buf == nil {
		return 0
	}
	return pkt.shared.buf.Len()
}

func (pkt *BasePacket[T]) URL() string {
	return pkt.InpURL
}

func (pkt *BasePacket[T]) SetURL(url string) {
	pkt.InpURL = url
}

func (pkt *BasePacket[T]) StreamIndex() uint8 {
	return pkt.Idx
}

func (pkt *BasePacket[T]) SetStreamIndex(idx uint8) {
	pkt.Idx = idx
}

func (pkt *BasePacket[T]) Timestamp() time.Duration {
	return pkt.RelativeTime
}

func (pkt *BasePacket[T]) SetTimestamp(ts time.Duration) {
	pkt.RelativeTime = ts
}

func (pkt *BasePacket[T]) Duration() time.Duration {
	return pkt.Dur
}

func (pkt *BasePacket[T]) SetDuration(dur time.Duration) {
	pkt.Dur = dur
}

func (pkt *BasePacket[T]) String() string {
	if pkt == nil || pkt.shared == nil {
		return "EMPTY_PACKET"
	}
	return fmt.Sprintf("PACKET sz=%d", pkt.Len())
}

// Retain adds a reference that must be matched by Close.
func (pkt *BasePacket[T]) Retain() {
	atomic.AddInt32(&pkt.shared.ref, 1)
}

func (pkt *BasePacket[T]) Close() {
	if pkt.shared == nil {
		return
	}
	count := atomic.AddInt32(&pkt.shared.ref, -1)
	if count == 0 {
		pkt.shared.buf.Release()
	} else if count < 0 {
		panic("packet reference count is negative")
	}
}

type VideoPacket[T mp4mux.VideoCodecParameters] struct {
	BasePacket[T]
	IsKeyFrm bool
}

func (pkt *VideoPacket[T]) Clone(copyData bool) VideoPacket[T] {
	return VideoPacket[T]{
		BasePacket: pkt.BasePacket.Clone(copyData),
		IsKeyFrm:   pkt.IsKeyFrm,
	}
}

func (pkt *VideoPacket[T]) CodecParameters() mp4mux.VideoCodecParameters {
	return pkt.CodecPar
}

func (pkt *VideoPacket[T]) IsKeyFrame() bool {
	return pkt.IsKeyFrm
}

type AudioPacket[T mp4mux.AudioCodecParameters] struct {
	BasePacket[T]
}

func (pkt *AudioPacket[T]) Clone(copyData bool) AudioPacket[T] {
	return AudioPacket[T]{
		BasePacket: pkt.BasePacket.Clone(copyData),
	}
}

func (pkt *AudioPacket[T]) CodecParameters() mp4mux.AudioCodecParameters {
	return pkt.CodecPar
}
