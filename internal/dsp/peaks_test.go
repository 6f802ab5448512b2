package dsp

import "testing"

func flatSpec(t, f int, val float64) [][]float64 {
	spec := make([][]float64, t)
	for i := range spec {
		spec[i] = make([]float64, f)
		for j := range spec[i] {
			spec[i][j] = val
		}
	}
	return spec
}

func TestPickPeaksFindsSingleSpike(t *testing.T) {
	spec := flatSpec(40, 40, -80)
	spec[20][20] = 0

	peaks := PickPeaks(spec, -60, 20, 20)
	if len(peaks) != 1 {
		t.Fatalf("expected exactly 1 peak, got %d: %v", len(peaks), peaks)
	}
	if peaks[0].T != 20 || peaks[0].F != 20 {
		t.Errorf("expected peak at (20,20), got (%d,%d)", peaks[0].T, peaks[0].F)
	}
}

func TestPickPeaksRejectsBelowFloor(t *testing.T) {
	spec := flatSpec(40, 40, -80)
	spec[20][20] = -70 // above flat floor, but below FLOOR_DB

	peaks := PickPeaks(spec, -60, 20, 20)
	if len(peaks) != 0 {
		t.Fatalf("expected no peaks below floor, got %d", len(peaks))
	}
}

func TestPickPeaksRejectsTies(t *testing.T) {
	spec := flatSpec(40, 40, -80)
	spec[20][20] = 0
	spec[20][21] = 0 // equal neighbor disqualifies both

	peaks := PickPeaks(spec, -60, 20, 20)
	if len(peaks) != 0 {
		t.Fatalf("expected ties to disqualify candidates, got %d peaks: %v", len(peaks), peaks)
	}
}

func TestPickPeaksHandlesEdgesByReflection(t *testing.T) {
	spec := flatSpec(40, 40, -80)
	spec[0][0] = 0 // corner peak

	peaks := PickPeaks(spec, -60, 20, 20)
	found := false
	for _, p := range peaks {
		if p.T == 0 && p.F == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a peak at the corner to survive reflection padding, got %v", peaks)
	}
}

func TestPickPeaksSortedByTimeThenFreq(t *testing.T) {
	spec := flatSpec(60, 60, -80)
	spec[10][5] = 0
	spec[10][45] = 0
	spec[40][5] = 0

	peaks := PickPeaks(spec, -60, 20, 20)
	if len(peaks) != 3 {
		t.Fatalf("expected 3 peaks, got %d", len(peaks))
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].T < peaks[i-1].T {
			t.Fatalf("peaks not sorted by time ascending: %v", peaks)
		}
		if peaks[i].T == peaks[i-1].T && peaks[i].F < peaks[i-1].F {
			t.Fatalf("peaks not sorted by frequency within a time bin: %v", peaks)
		}
	}
}
