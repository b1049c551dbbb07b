package buffer

// PooledBuffer holds the payload of a packet or of a sample waiting in a track queue. The holder
// calls Release once the bytes are written or dropped; Data must not be used afterwards.
type PooledBuffer interface {
	Data() []byte
	Len() int
	Release()
}
