// ABOUTME: Audio decoder package for the codecs the player negotiates
// ABOUTME: Provides the Decoder interface and PCM, Opus and MP3 implementations
// Package decode provides audio decoders for the stream codecs the player
// can negotiate: PCM (16-bit and 24-bit), Opus and MP3.
//
// All decoders implement the Decoder interface and emit int32 samples in the
// internal 24-bit range, so the rest of the pipeline never cares which codec
// produced them.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	if err != nil {
//	    return err
//	}
//	samples, err := decoder.Decode(chunk)
package decode
