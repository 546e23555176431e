// ABOUTME: Binary frame layout and decoder
// ABOUTME: Splits type, timestamp, and payload out of server binary messages
package protocol

import "encoding/binary"

const (
	// BinaryHeaderSize is the size of the binary frame header (type byte + timestamp)
	BinaryHeaderSize = 1 + 8 // 9 bytes: 1 byte type + 8 byte timestamp

	// MsgTypeAudio is the binary frame type for audio chunks
	// Player role binary messages use IDs 4-7 (bits 000001xx), slot 0 is audio
	MsgTypeAudio = 4

	// MsgTypeArtworkBase is the first of the four artwork channel types (8-11)
	MsgTypeArtworkBase = 8

	// ArtworkChannels is the number of artwork channels
	ArtworkChannels = 4

	// MsgTypeVisualizer is the binary frame type for visualizer data
	MsgTypeVisualizer = 16
)

// FrameKind classifies a decoded binary frame.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameAudio
	FrameArtwork
	FrameVisualizer
)

func (k FrameKind) String() string {
	switch k {
	case FrameAudio:
		return "audio"
	case FrameArtwork:
		return "artwork"
	case FrameVisualizer:
		return "visualizer"
	default:
		return "unknown"
	}
}

// BinaryFrame is one decoded server binary message.
type BinaryFrame struct {
	Kind      FrameKind
	RawType   byte  // wire type code, preserved for unknown frames
	Channel   int   // artwork channel 0-3, zero for other kinds
	Timestamp int64 // microseconds, server clock
	Payload   []byte
}

// DecodeBinaryFrame splits a server binary message into its frame
// parts. Returns ok=false when data is shorter than the 9-byte header.
// The payload is copied out, so the caller may reuse data.
func DecodeBinaryFrame(data []byte) (BinaryFrame, bool) {
	if len(data) < BinaryHeaderSize {
		return BinaryFrame{}, false
	}

	frame := BinaryFrame{
		RawType:   data[0],
		Timestamp: int64(binary.BigEndian.Uint64(data[1:BinaryHeaderSize])),
		Payload:   make([]byte, len(data)-BinaryHeaderSize),
	}
	copy(frame.Payload, data[BinaryHeaderSize:])

	switch {
	case frame.RawType == MsgTypeAudio:
		frame.Kind = FrameAudio
	case frame.RawType >= MsgTypeArtworkBase && frame.RawType < MsgTypeArtworkBase+ArtworkChannels:
		frame.Kind = FrameArtwork
		frame.Channel = int(frame.RawType - MsgTypeArtworkBase)
	case frame.RawType == MsgTypeVisualizer:
		frame.Kind = FrameVisualizer
	default:
		frame.Kind = FrameUnknown
	}

	return frame, true
}

// EncodeBinaryFrame builds the wire form of a binary frame.
func EncodeBinaryFrame(msgType byte, timestamp int64, payload []byte) []byte {
	buf := make([]byte, BinaryHeaderSize+len(payload))
	buf[0] = msgType
	binary.BigEndian.PutUint64(buf[1:BinaryHeaderSize], uint64(timestamp))
	copy(buf[BinaryHeaderSize:], payload)
	return buf
}
