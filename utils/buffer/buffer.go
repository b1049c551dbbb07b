package buffer

import (
	"sync"
)

const (
	defaultBufSize = 4 * 1024        // 4KB
	bigBufSize     = 64 * 1024       // 64KB
	maxBufSize     = 4 * 1024 * 1024 // larger buffers are left to the GC
)

var bufPool = sync.Pool{
	New: func() any {
		return &memBuffer{
			buf: make([]byte, 0, defaultBufSize),
		}
	},
}

var bigBufPool = sync.Pool{
	New: func() any {
		return &memBuffer{
			buf: make([]byte, 0, bigBufSize),
		}
	},
}

// Get returns a pooled buffer of length size. The contents are unspecified.
func Get(size int) PooledBuffer {
	var b *memBuffer
	if size >= bigBufSize {
		b = bigBufPool.Get().(*memBuffer) //nolint:errcheck // pool only holds *memBuffer
	} else {
		b = bufPool.Get().(*memBuffer) //nolint:errcheck // pool only holds *memBuffer
	}

	if cap(b.buf) < size {
		b.buf = make([]byte, size)
	}
	b.buf = b.buf[:size]
	return b
}

// Clone returns a pooled copy of data.
func Clone(data []byte) PooledBuffer {
	b := Get(len(data))
	copy(b.Data(), data)
	return b
}

type memBuffer struct {
	buf []byte
}

func (b *memBuffer) Data() []byte {
	return b.buf
}

func (b *memBuffer) Len() int {
	return len(b.buf)
}

func (b *memBuffer) Release() {
	if cap(b.buf) > maxBufSize {
		return
	}

	b.buf = b.buf[:0]
	if cap(b.buf) >= bigBufSize {
		bigBufPool.Put(b)
	} else {
		bufPool.Put(b)
	}
}

// Wrap adapts a caller-owned slice to PooledBuffer. Release drops the reference.
func Wrap(data []byte) PooledBuffer {
	return &ownedBuffer{buf: data}
}

type ownedBuffer struct {
	buf []byte
}

func (b *ownedBuffer) Data() []byte {
	return b.buf
}

func (b *ownedBuffer) Len() int {
	return len(b.buf)
}

func (b *ownedBuffer) Release() {
	b.buf = nil
}
