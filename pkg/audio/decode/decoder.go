// ABOUTME: Decoder interface definition
// ABOUTME: Common interface implemented by the PCM, Opus and MP3 decoders
package decode

// Decoder turns encoded audio chunks into PCM int32 samples.
type Decoder interface {
	// Decode converts one encoded chunk to interleaved PCM samples.
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources.
	Close() error
}
