// ABOUTME: Tests for the PCM decoder
// ABOUTME: Covers 16-bit and 24-bit unpacking and format validation
package decode

import (
	"testing"

	"github.com/Unison-Protocol/unison-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("Expected decoder to be created")
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	// 2 bytes per sample, little-endian
	input := []byte{0x00, 0x01, 0x02, 0x03}
	output, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(output))
	}

	// 0x00,0x01 -> 256, widened to 256<<8
	if output[0] != 256<<8 {
		t.Errorf("Expected first sample %d, got %d", 256<<8, output[0])
	}
	// 0x02,0x03 -> 770, widened to 770<<8
	if output[1] != 770<<8 {
		t.Errorf("Expected second sample %d, got %d", 770<<8, output[1])
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 192000,
		Channels:   2,
		BitDepth:   24,
	}

	decoder, err := NewPCM(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	// 3 bytes per sample, little-endian
	input := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	output, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(output))
	}

	if output[0] != 0x020100 {
		t.Errorf("Expected first sample %d, got %d", 0x020100, output[0])
	}
	if output[1] != 0x050403 {
		t.Errorf("Expected second sample %d, got %d", 0x050403, output[1])
	}
}

func TestNewPCM_InvalidCodec(t *testing.T) {
	format := audio.Format{
		Codec:      "opus",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err == nil {
		t.Fatal("Expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Fatal("Expected nil decoder for invalid codec")
	}

	expected := "invalid codec for PCM decoder: opus"
	if err.Error() != expected {
		t.Errorf("Expected error %q, got %q", expected, err.Error())
	}
}

func TestNewPCM_UnsupportedBitDepth(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   32,
	}

	decoder, err := NewPCM(format)
	if err == nil {
		t.Fatal("Expected error for unsupported bit depth, got nil")
	}
	if decoder != nil {
		t.Fatal("Expected nil decoder for unsupported bit depth")
	}

	expected := "unsupported bit depth: 32 (supported: 16, 24)"
	if err.Error() != expected {
		t.Errorf("Expected error %q, got %q", expected, err.Error())
	}
}

func TestPCMDecode_EmptyInput(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewPCM(format)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{})
	if err != nil {
		t.Fatalf("Decode failed with empty input: %v", err)
	}
	if len(output) != 0 {
		t.Errorf("Expected 0 samples from empty input, got %d", len(output))
	}
}
