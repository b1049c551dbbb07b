// Package mp4mux holds the media types shared by the codec descriptors, the incremental
// MP4 writer and the demuxer.
package mp4mux

import (
	"time"
)

// CodecParameters describes the format of one track. The writer treats it as opaque and
// hands it to the metadata assembler.
type CodecParameters interface {
	Type() CodecType      // Returns the codec type (audio/video).
	Tag() string          // Returns the codec identifier string.
	StreamIndex() uint8   // Returns the index of the stream in a container.
	SetStreamIndex(uint8) // Sets the stream index value.
	Bitrate() uint        // Returns the nominal bitrate in bits per second, zero when unknown.
	SetBitrate(uint)      // Sets the bitrate declared in the track's sample entry.
}

// VideoCodecParameters extends CodecParameters with video-specific properties.
type VideoCodecParameters interface {
	CodecParameters
	Width() uint  // Returns the video frame width in pixels.
	Height() uint // Returns the video frame height in pixels.
	FPS() uint    // Returns the video frame rate, zero when unknown.
}

// AudioCodecParameters extends CodecParameters with audio-specific properties.
type AudioCodecParameters interface {
	CodecParameters
	SampleRate() uint64 // Returns the audio sampling frequency in Hz.
	Channels() uint8    // Returns the number of audio channels.
}

// CodecParametersPair bundles audio and video codec parameters for a multimedia stream.
type CodecParametersPair struct {
	URL string // The source URL of the multimedia stream.
	AudioCodecParameters
	VideoCodecParameters
}

// SampleFlags carries per-sample properties.
type SampleFlags uint8

const (
	// SampleFlagSync marks a sample that decoding can start from.
	SampleFlagSync SampleFlags = 1 << iota
)

// SampleInfo describes one media sample handed to a writer.
type SampleInfo struct {
	Size             int           // Payload length in bytes.
	PresentationTime time.Duration // Presentation timestamp.
	Flags            SampleFlags
}

// IsSync reports whether the sample is a sync sample.
func (si SampleInfo) IsSync() bool {
	return si.Flags&SampleFlagSync != 0
}

// Packet defines the interface for multimedia data containers.
type Packet interface {
	Clone(copyData bool) Packet // Creates a packet copy, optionally copying the underlying data.
	URL() string                // Returns the source URL of the packet.
	SetURL(string)              // Sets the source URL for the packet.
	StreamIndex() uint8         // Returns the stream index this packet belongs to.
	SetStreamIndex(uint8)       // Sets the stream index for this packet.
	Timestamp() time.Duration   // Returns the presentation timestamp.
	SetTimestamp(time.Duration) // Sets the presentation timestamp.
	Duration() time.Duration    // Returns the duration of the packet content.
	SetDuration(time.Duration)  // Sets the duration of the packet content.
	Data() []byte               // Returns the raw packet data.
	Len() int                   // Returns the payload length.
	Close()                     // Drops this reference to the payload.
}

// VideoPacket extends Packet with video-specific functionality.
type VideoPacket interface {
	Packet
	IsKeyFrame() bool
	CodecParameters() VideoCodecParameters
}

// AudioPacket extends Packet with audio-specific functionality.
type AudioPacket interface {
	Packet
	CodecParameters() AudioCodecParameters
}

// Demuxer defines the interface for extracting packets from multimedia containers.
type Demuxer interface {
	Demux() (CodecParametersPair, error) // Initializes and returns detected stream parameters.
	ReadPacket() (pkt Packet, err error) // Reads the next packet from the container.
	Close()                              // Releases resources used by the demuxer.
}

// Muxer defines the interface for packaging packets into multimedia containers.
type Muxer interface {
	Mux(CodecParametersPair) (err error) // Initializes the muxer with stream parameters.
	WritePacket(pkt Packet) (err error)  // Writes a packet to the container.
	Close() error                        // Finalizes the container and releases resources.
}

// FileInfo describes a file finished by a Segmenter.
type FileInfo struct {
	Name  string    // Path relative to the destination directory.
	Start time.Time // Wall clock time the file was opened.
	Stop  time.Time // Start plus the media time covered by the file.
	Size  int64
}

// Segmenter records a packet stream into a sequence of files.
type Segmenter interface {
	Write()                 // Starts consuming packets.
	Packets() chan<- Packet // Input packets. Ownership moves to the segmenter.
	Files() <-chan FileInfo // Finished files. Closed by Close.
	Close()                 // Finishes the current file and stops.
}
