// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM through a persistent oto player with software volume
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Unison-Protocol/unison-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto plays audio through the oto library. Samples are pushed into an
// io.Pipe feeding one persistent oto player, so playback is continuous
// across chunk boundaries.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	ready      bool

	mu     sync.Mutex // guards volume and muted
	volume int
	muted  bool
}

// NewOto creates a new Oto output.
func NewOto() Output {
	return &Oto{
		volume: 100,
	}
}

// Open initializes the output device.
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	// oto only renders 16-bit
	if bitDepth != 16 {
		log.Printf("Audio output is 16-bit, narrowing from requested %d-bit", bitDepth)
	}

	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		log.Printf("Audio output already open with same format, reusing context")
		return nil
	}

	// oto allows a single context per process, so a format change has to
	// keep the context from the first stream.
	if o.otoCtx != nil {
		log.Printf("Format change %dHz %dch -> %dHz %dch ignored, oto context cannot be reopened",
			o.sampleRate, o.channels, sampleRate, channels)
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true

	log.Printf("Audio output open: %dHz, %d channels", sampleRate, channels)

	return nil
}

// Write outputs audio samples, blocking until the pipe accepts them.
func (o *Oto) Write(samples []int32) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	o.mu.Lock()
	volume, muted := o.volume, o.muted
	o.mu.Unlock()

	scaled := applyVolume(samples, volume, muted)

	// Narrow to 16-bit little-endian bytes for oto
	out := make([]byte, len(scaled)*2)
	for i, s := range scaled {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
	}

	if _, err := o.pipeWriter.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Close releases output resources.
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
		o.ready = false
	}
	return nil
}

// SampleRate returns the device context rate, or 0 before Open.
func (o *Oto) SampleRate() int {
	return o.sampleRate
}

// SetVolume sets the volume (0-100).
func (o *Oto) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()

	log.Printf("Volume set to %d", volume)
}

// SetMuted sets the mute state.
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()

	log.Printf("Muted: %v", muted)
}

// GetVolume returns the current volume.
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns the mute state.
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// applyVolume scales samples by volume and mute, clamping to the 24-bit range.
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := getVolumeMultiplier(volume, muted)

	result := make([]int32, len(samples))
	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)

		if scaled > audio.Max24Bit {
			scaled = audio.Max24Bit
		} else if scaled < audio.Min24Bit {
			scaled = audio.Min24Bit
		}

		result[i] = int32(scaled)
	}

	return result
}

func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
