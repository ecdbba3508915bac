package dsp

import "math"

// CubicInterpolate returns the Catmull-Rom spline value between y1 and y2.
// x is the fractional position in [0, 1).
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return a0*x*x*x + a1*x*x + a2*x + a3
}

// SemitoneRatio converts a pitch offset in semitones to a playback rate multiplier.
func SemitoneRatio(semitones float64) float64 {
	return math.Exp2(semitones / 12)
}

// SampleAt reads channel ch of interleaved samples at a fractional frame position.
// Neighbouring frames outside the buffer are clamped to the edges.
func SampleAt(samples []float32, channels int, pos float64, ch int) float32 {
	frames := len(samples) / channels
	if frames == 0 {
		return 0
	}
	i := int(pos)
	frac := float32(pos - float64(i))
	at := func(f int) float32 {
		if f < 0 {
			f = 0
		} else if f >= frames {
			f = frames - 1
		}
		return samples[f*channels+ch]
	}
	return CubicInterpolate(at(i-1), at(i), at(i+1), at(i+2), frac)
}

// Resample converts interleaved samples from srcRate to dstRate. The channel
// count is preserved. Equal rates return the input unchanged.
func Resample(samples []float32, channels, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || channels <= 0 {
		return samples
	}
	srcFrames := len(samples) / channels
	if srcFrames == 0 {
		return nil
	}
	ratio := float64(srcRate) / float64(dstRate)
	dstFrames := int(math.Ceil(float64(srcFrames) / ratio))
	out := make([]float32, dstFrames*channels)
	for f := 0; f < dstFrames; f++ {
		pos := float64(f) * ratio
		for c := 0; c < channels; c++ {
			out[f*channels+c] = SampleAt(samples, channels, pos, c)
		}
	}
	return out
}
