// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

// Output represents an audio output device.
type Output interface {
	// Open initializes the output device for the given stream format.
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs audio samples, blocking until they are accepted.
	Write(samples []int32) error

	// Close releases output resources.
	Close() error
}
