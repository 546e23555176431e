// ABOUTME: Sample rate conversion for interleaved PCM
// ABOUTME: Linear interpolation with seamless chunk boundaries
// Package resample converts interleaved PCM between sample rates.
//
// The resampler interpolates linearly and holds the final frame of each
// chunk, so a stream fed chunk by chunk comes out as one continuous
// signal. Size the output with OutputSamplesNeeded and slice to the
// returned count:
//
//	r := resample.New(48000, 44100, 2)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
//	play(out[:n])
package resample
