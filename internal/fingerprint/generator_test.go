package fingerprint

import (
	"testing"

	"github.com/soundtrace/soundtrace/internal/dsp"
)

func defaultParams() Params {
	return Params{MinDeltaFrames: 1, MaxDeltaFrames: 200, MaxDeltaFreq: 200, FanOut: 15}
}

func TestGenerateRespectsFanOut(t *testing.T) {
	peaks := []dsp.Peak{{T: 0, F: 100}}
	for i := 1; i <= 30; i++ {
		peaks = append(peaks, dsp.Peak{T: uint32(i), F: 100})
	}

	hashes := Generate(peaks, defaultParams())
	fromFirstAnchor := 0
	for _, h := range hashes {
		if h.AnchorTime == 0 {
			fromFirstAnchor++
		}
	}
	if fromFirstAnchor != 15 {
		t.Fatalf("expected exactly FanOut=15 hashes from a single anchor, got %d", fromFirstAnchor)
	}
}

func TestGenerateRejectsOutOfRangeDeltaTime(t *testing.T) {
	peaks := []dsp.Peak{
		{T: 0, F: 100},
		{T: 300, F: 100}, // dt = 300 > MaxDeltaFrames(200)
	}
	hashes := Generate(peaks, defaultParams())
	if len(hashes) != 0 {
		t.Fatalf("expected no hashes for out-of-range delta time, got %d", len(hashes))
	}
}

func TestGenerateRejectsOutOfRangeDeltaFreq(t *testing.T) {
	peaks := []dsp.Peak{
		{T: 0, F: 0},
		{T: 5, F: 500}, // df = 500 > MaxDeltaFreq(200)
	}
	hashes := Generate(peaks, defaultParams())
	if len(hashes) != 0 {
		t.Fatalf("expected no hashes for out-of-range delta frequency, got %d", len(hashes))
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	peaks := []dsp.Peak{{T: 0, F: 10}, {T: 2, F: 12}, {T: 4, F: 11}}
	a := Generate(peaks, defaultParams())
	b := Generate(peaks, defaultParams())
	if len(a) != len(b) {
		t.Fatalf("expected deterministic output length, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic hash sequence, diverged at index %d", i)
		}
	}
}

func TestGenerateEmptyPeaksYieldsNoHashes(t *testing.T) {
	hashes := Generate(nil, defaultParams())
	if len(hashes) != 0 {
		t.Fatalf("expected no hashes for empty peak list, got %d", len(hashes))
	}
}

func TestToPostingsAttachesSongID(t *testing.T) {
	hashes := []Hash{{Value: "abc", AnchorTime: 7}}
	postings := ToPostings(hashes, 42)
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if postings[0].SongID != 42 || postings[0].AnchorTime != 7 || postings[0].Hash != "abc" {
		t.Fatalf("unexpected posting: %+v", postings[0])
	}
}
