package audio

import (
	"math"
	"testing"
)

func sineWave(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

func TestResampleNoOp(t *testing.T) {
	in := sineWave(440, 22050, 1000)
	out, err := Resample(in, 22050, 22050)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(out) != len(in) {
		t.Errorf("expected no-op to preserve length, got %d want %d", len(out), len(in))
	}
}

func TestResampleChangesLengthProportionally(t *testing.T) {
	in := sineWave(440, 22050, 22050)
	out, err := Resample(in, 22050, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	wantLen := 16000
	if diff := out; len(diff) < wantLen-50 || len(diff) > wantLen+50 {
		t.Errorf("expected roughly %d samples, got %d", wantLen, len(out))
	}

	for i, v := range out {
		if v < -1.0001 || v > 1.0001 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestResampleRoundTripPreservesRoughDuration(t *testing.T) {
	in := sineWave(220, 22050, 22050*2)
	down, err := Resample(in, 22050, 16000)
	if err != nil {
		t.Fatalf("downsample failed: %v", err)
	}
	back, err := Resample(down, 16000, 22050)
	if err != nil {
		t.Fatalf("upsample failed: %v", err)
	}

	if math.Abs(float64(len(back)-len(in))) > float64(len(in))*0.02 {
		t.Errorf("round trip length drifted too much: got %d, want near %d", len(back), len(in))
	}
}

func TestResampleRejectsNonPositiveRates(t *testing.T) {
	if _, err := Resample([]float64{1, 2, 3}, 0, 22050); err == nil {
		t.Error("expected error for zero source rate")
	}
	if _, err := Resample([]float64{1, 2, 3}, 22050, -1); err == nil {
		t.Error("expected error for negative destination rate")
	}
}

func TestFramerEmitsOverlappingWindows(t *testing.T) {
	f := NewFramer(10, 5)
	samples := make([]float64, 27)
	for i := range samples {
		samples[i] = float64(i)
	}

	frames := f.Push(samples)
	if len(frames) != 4 {
		t.Fatalf("expected 4 complete windows, got %d", len(frames))
	}
	if frames[0][0] != 0 || frames[1][0] != 5 || frames[2][0] != 10 {
		t.Errorf("windows did not start at expected hop offsets: %v %v %v",
			frames[0][0], frames[1][0], frames[2][0])
	}

	remaining := f.Flush()
	if len(remaining) != 1 {
		t.Fatalf("expected one flushed partial window, got %d", len(remaining))
	}
}

func TestFramerNeverEmitsPartialDuringStreaming(t *testing.T) {
	f := NewFramer(10, 5)
	frames := f.Push(make([]float64, 7))
	if len(frames) != 0 {
		t.Errorf("expected no complete windows from a short push, got %d", len(frames))
	}
}
