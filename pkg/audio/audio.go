// Package audio provides the in-memory waveform representation used across
// the evaluation pipeline together with channel downmixing, peak
// normalisation, resampling, and RIFF/WAVE encoding and decoding.
//
// All processing operates on float32 samples in the range [-1, 1], matching
// what the recognition and scoring engines consume. Conversion from and to
// 16-bit PCM happens only at the WAV container boundary.
package audio

import "math"

// Clip is a decoded audio waveform. Samples are interleaved when Channels > 1.
type Clip struct {
	// Samples holds float32 amplitudes, nominally in [-1, 1].
	Samples []float32

	// SampleRate is the number of frames per second.
	SampleRate int

	// Channels is the channel count; 1 = mono. Zero is treated as mono.
	Channels int
}

// Frames returns the number of sample frames in the clip.
func (c Clip) Frames() int {
	ch := c.Channels
	if ch <= 1 {
		return len(c.Samples)
	}
	return len(c.Samples) / ch
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// DownmixMono averages all channels of each frame into a single channel.
// Mono input is returned unchanged (zero allocation).
func DownmixMono(c Clip) Clip {
	if c.Channels <= 1 {
		return c
	}
	frames := len(c.Samples) / c.Channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range c.Channels {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / float32(c.Channels)
	}
	return Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
}

// PeakNormalize scales samples so the largest absolute amplitude becomes 1.
// Silent input (all zero) is returned unchanged rather than divided by zero.
func PeakNormalize(c Clip) Clip {
	var peak float32
	for _, s := range c.Samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return c
	}
	out := make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s / peak
	}
	return Clip{Samples: out, SampleRate: c.SampleRate, Channels: c.Channels}
}

// Resample converts a mono clip from its native rate to dstRate using linear
// interpolation. If the rates already match (or either rate is invalid) the
// input is returned unchanged. Multi-channel clips must be downmixed first.
func Resample(c Clip, dstRate int) Clip {
	if c.SampleRate <= 0 || dstRate <= 0 || c.SampleRate == dstRate || len(c.Samples) < 2 {
		return c
	}
	srcSamples := len(c.Samples)
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(c.SampleRate))
	if dstSamples == 0 {
		return Clip{SampleRate: dstRate, Channels: c.Channels}
	}

	out := make([]float32, dstSamples)
	ratio := float64(c.SampleRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := c.Samples[srcIdx]
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = c.Samples[srcIdx+1]
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return Clip{Samples: out, SampleRate: dstRate, Channels: 1}
}
