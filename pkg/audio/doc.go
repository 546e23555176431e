// ABOUTME: Package documentation for the audio fundamentals package
// ABOUTME: Describes the shared Format and Buffer types and sample helpers
// Package audio provides the core types shared by the Unison playback pipeline.
//
// A Format describes the stream the server negotiated (codec, sample rate,
// channels, bit depth). A Buffer carries one decoded PCM chunk together with
// the server timestamp it should play at; samples are stored as int32 so the
// same pipeline handles 16-bit and 24-bit streams.
//
// The Sample* helpers convert between the internal representation and the
// packed forms used on the wire and at the output device:
//
//	// widen a 16-bit decoder sample into the internal range
//	s := audio.SampleFromInt16(raw)
//
//	// narrow it again for a 16-bit output device
//	out := audio.SampleToInt16(s)
package audio
