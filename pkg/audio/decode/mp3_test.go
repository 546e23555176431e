// ABOUTME: Tests for the MP3 decoder
// ABOUTME: Covers decoder creation, codec validation and malformed input
package decode

import (
	"testing"

	"github.com/Unison-Protocol/unison-go/pkg/audio"
)

func TestNewMP3(t *testing.T) {
	format := audio.Format{
		Codec:      "mp3",
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewMP3(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("Expected decoder to be created")
	}
}

func TestNewMP3_InvalidCodec(t *testing.T) {
	format := audio.Format{
		Codec:      "opus",
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewMP3(format)
	if err == nil {
		t.Fatal("Expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Fatal("Expected nil decoder for invalid codec")
	}

	expected := "invalid codec for MP3 decoder: opus"
	if err.Error() != expected {
		t.Errorf("Expected error %q, got %q", expected, err.Error())
	}
}

func TestMP3Decode_MalformedSegment(t *testing.T) {
	format := audio.Format{
		Codec:      "mp3",
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewMP3(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	// Not an MP3 frame, must surface a decode error
	if _, err := decoder.Decode([]byte{0x01, 0x02, 0x03, 0x04}); err == nil {
		t.Fatal("Expected error for malformed segment, got nil")
	}
}

func TestMP3Close(t *testing.T) {
	format := audio.Format{
		Codec:      "mp3",
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewMP3(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	if err := decoder.Close(); err != nil {
		t.Errorf("Expected Close to succeed, got error: %v", err)
	}
}
