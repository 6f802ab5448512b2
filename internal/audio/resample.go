package audio

import (
	"errors"
	"fmt"
	"math"
)

// AnalysisRate is the canonical rate all fingerprinting operates at.
const AnalysisRate = 22050

// ErrResample is returned when rate conversion cannot be performed.
var ErrResample = errors.New("audio: resample error")

// ToAnalysisRate resamples mono samples from srcRate to AnalysisRate.
// A no-op when srcRate already equals AnalysisRate.
func ToAnalysisRate(samples []float64, srcRate int) ([]float64, error) {
	return Resample(samples, srcRate, AnalysisRate)
}

// Resample converts mono samples from srcRate to dstRate using a
// first-order low-pass filter (cutoff just under the lower of the two
// Nyquist frequencies) followed by linear-interpolation resampling. This
// preserves frequency content below dstRate/2 and works for both down-
// and up-sampling, so a 22050->16000->22050 round trip stays close to
// the original signal.
func Resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: rates must be positive", ErrResample)
	}
	if srcRate == dstRate {
		return samples, nil
	}
	if len(samples) == 0 {
		return nil, nil
	}

	nyquist := float64(dstRate) / 2
	if float64(srcRate)/2 < nyquist {
		nyquist = float64(srcRate) / 2
	}
	cutoff := nyquist * 0.9

	filtered := lowPassFilter(cutoff, float64(srcRate), samples)

	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(math.Round(float64(len(filtered)) * ratio))
	if outLen < 1 {
		return nil, fmt.Errorf("%w: output too short", ErrResample)
	}

	out := make([]float64, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		frac := srcPos - float64(i0)
		i1 := i0 + 1
		if i1 >= len(filtered) {
			i1 = len(filtered) - 1
		}
		if i0 >= len(filtered) {
			i0 = len(filtered) - 1
		}
		out[i] = clampUnit(filtered[i0]*(1-frac) + filtered[i1]*frac)
	}

	return out, nil
}

// lowPassFilter is a first-order RC low-pass filter, grounded in the pack's
// seek-tune reference implementation.
func lowPassFilter(cutoffHz, sampleRate float64, input []float64) []float64 {
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	alpha := dt / (rc + dt)

	out := make([]float64, len(input))
	var prev float64
	for i, x := range input {
		if i == 0 {
			out[i] = x * alpha
		} else {
			out[i] = alpha*x + (1-alpha)*prev
		}
		prev = out[i]
	}
	return out
}
