// ABOUTME: Core audio types shared by the decode, output and playback packages
// ABOUTME: Defines stream formats, timestamped PCM buffers and sample conversions
package audio

import "time"

const (
	// Bounds of the 24-bit sample range used internally.
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes the audio stream negotiated with the server.
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader []byte // Setup data for codecs that need it (e.g. Opus)
}

// Buffer is a decoded PCM chunk tagged with its server timestamp.
// PlayAt is filled in by the scheduler once the clock offset is known.
type Buffer struct {
	Timestamp int64     // Server timestamp (microseconds)
	PlayAt    time.Time // Local wall-clock play time
	Samples   []int32   // Interleaved PCM, 16-bit or 24-bit values
	Format    Format
}

// SampleToInt16 narrows an internal sample to 16-bit for playback.
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 widens a 16-bit sample into the internal 24-bit range.
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit packs a sample into 3 little-endian bytes.
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit unpacks 3 little-endian bytes into a sign-extended sample.
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
