// Package dsp implements the spectrogram and peak picker stages of the
// fingerprinting pipeline.
package dsp

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

const epsilon = 1e-10

// Spectrogram computes a time x frequency magnitude-in-dB matrix from mono
// samples using a Hann-windowed STFT. windowSize/hopSize are expected to be
// the canonical 4096/2048 but are accepted as parameters for testability.
func Spectrogram(samples []float64, windowSize, hopSize int) ([][]float64, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, errors.New("dsp: window and hop sizes must be positive")
	}
	if len(samples) < windowSize {
		return nil, errors.New("dsp: input shorter than window size")
	}

	spec := make([][]float64, 0, (len(samples)-windowSize)/hopSize+1)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		frame := make([]float64, windowSize)
		copy(frame, samples[start:start+windowSize])
		window.Hann(frame)

		spectrum := fft.FFTReal(frame)
		spec = append(spec, magnitudeDB(spectrum))
	}
	return spec, nil
}

// magnitudeDB returns the first half+1 bins (the non-redundant real-FFT
// spectrum, W/2+1 = 2049 bins for W = 4096) converted to dB.
func magnitudeDB(spectrum []complex128) []float64 {
	n := len(spectrum)/2 + 1
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		mag := cmplx.Abs(spectrum[i])
		out[i] = 20 * math.Log10(math.Max(mag, epsilon))
	}
	return out
}
