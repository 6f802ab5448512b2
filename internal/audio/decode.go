// Package audio implements PCM decode, stereo collapse, rate conversion
// to the canonical analysis rate, and windowing into overlapping frames.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// ErrDecode is returned when the input file cannot be interpreted as audio.
var ErrDecode = errors.New("audio: decode error")

// DecodeWAVFile reads a WAV file and returns mono float64 samples in
// [-1, 1] at the file's native sample rate. Stereo and wider channel
// layouts are collapsed by averaging.
func DecodeWAVFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening %s: %v", ErrDecode, path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s is not a valid WAV file", ErrDecode, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decoding PCM: %v", ErrDecode, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("%w: invalid channel count %d", ErrDecode, channels)
	}

	maxVal := float64(int(1) << (uint(bitDepthOrDefault(dec)) - 1))
	samples := CollapseToMono(buf.Data, channels, maxVal)

	return samples, buf.Format.SampleRate, nil
}

func bitDepthOrDefault(dec *wav.Decoder) int {
	if dec.BitDepth > 0 {
		return int(dec.BitDepth)
	}
	return 16
}

// CollapseToMono averages interleaved integer PCM samples across channels
// and normalizes by maxVal into [-1, 1].
func CollapseToMono(data []int, channels int, maxVal float64) []float64 {
	if channels <= 1 {
		out := make([]float64, len(data))
		for i, s := range data {
			out[i] = float64(s) / maxVal
		}
		return out
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c])
		}
		out[i] = (sum / float64(channels)) / maxVal
	}
	return out
}

// clampUnit clamps a sample to [-1, 1], guarding against resampling
// overshoot near sharp transients.
func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
