// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets into int32 samples via libopus bindings
package decode

import (
	"fmt"

	"github.com/Unison-Protocol/unison-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusDecoder decodes Opus packets.
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
}

// NewOpus creates an Opus decoder for the given format.
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
	}, nil
}

// Decode converts one Opus packet to int32 samples.
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	// Max Opus frame is 120ms at 48kHz
	pcmSize := 5760 * d.format.Channels
	pcm16 := make([]int16, pcmSize)

	n, err := d.decoder.Decode(data, pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	// Opus output is always 16-bit, widen to the internal range
	actualSamples := n * d.format.Channels
	pcm32 := make([]int32, actualSamples)
	for i := 0; i < actualSamples; i++ {
		pcm32[i] = audio.SampleFromInt16(pcm16[i])
	}
	return pcm32, nil
}

// Close releases decoder resources.
func (d *OpusDecoder) Close() error {
	return nil
}
