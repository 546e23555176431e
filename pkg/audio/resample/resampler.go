// ABOUTME: Linear-interpolation resampler for interleaved PCM
// ABOUTME: Holds the last frame of each chunk so streams resample without seams
package resample

// Resampler converts interleaved samples between two rates by linear
// interpolation. Feed it consecutive chunks of a single stream; the final
// frame of each call is held so the sampling grid continues across chunk
// boundaries. Not safe for concurrent use.
type Resampler struct {
	from     int
	to       int
	channels int
	step     float64 // input frames advanced per output frame
	pos      float64 // next grid point, in input frames
	prev     []int32 // final frame of the previous call
	primed   bool
}

// New creates a resampler converting from inputRate to outputRate for the
// given channel count.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		from:     inputRate,
		to:       outputRate,
		channels: channels,
		step:     float64(inputRate) / float64(outputRate),
		prev:     make([]int32, channels),
	}
}

// Resample fills output with resampled frames from input and returns the
// number of samples written. Size output with OutputSamplesNeeded so the
// whole input is consumed; the return value is what actually got written.
// Chunks shorter than one frame are dropped.
func (r *Resampler) Resample(input, output []int32) int {
	ch := r.channels
	if len(input) < ch {
		return 0
	}

	inFrames := len(input) / ch
	outFrames := len(output) / ch

	if !r.primed {
		copy(r.prev, input[:ch])
		r.pos = 1
		r.primed = true
	}

	// The held frame sits at position 0, this chunk at 1..inFrames.
	written := 0
	for written < outFrames {
		idx := int(r.pos)
		if idx >= inFrames {
			break
		}
		frac := r.pos - float64(idx)

		a := r.prev
		if idx > 0 {
			a = input[(idx-1)*ch : idx*ch]
		}
		b := input[idx*ch : (idx+1)*ch]
		for c := 0; c < ch; c++ {
			output[written*ch+c] = int32(float64(a[c]) + (float64(b[c])-float64(a[c]))*frac)
		}

		written++
		r.pos += r.step
	}

	copy(r.prev, input[(inFrames-1)*ch:inFrames*ch])
	r.pos -= float64(inFrames)
	if r.pos < 0 {
		r.pos = 0
	}

	return written * ch
}

// Reset discards held state so the next call starts a fresh stream.
func (r *Resampler) Reset() {
	r.pos = 0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded returns the output length that guarantees Resample
// consumes inputSamples in full. It includes one frame of headroom for
// grid alignment, so Resample may write fewer samples than this.
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inFrames := inputSamples / r.channels
	outFrames := int(float64(inFrames)*float64(r.to)/float64(r.from)) + 1
	return outFrames * r.channels
}

// InputSamplesNeeded returns roughly how many input samples it takes to
// produce outputSamples.
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outFrames := outputSamples / r.channels
	inFrames := int(float64(outFrames) * r.step)
	return inFrames * r.channels
}
