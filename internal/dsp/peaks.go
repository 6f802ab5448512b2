package dsp

// Peak is a constellation point: a spectral bin that is a strict local
// maximum above the floor.
type Peak struct {
	T, F uint32
}

// PickPeaks scans a spectrogram (already in dB) for strict local maxima in
// a neighborT x neighborF neighborhood (20x20 by spec default) above
// floorDB. Edges are handled by reflecting the spectrogram rather than
// shrinking the neighborhood, so peaks within half a neighborhood of the
// start or end are still eligible. Ties within the neighborhood (an equal
// value at a non-center cell) disqualify the candidate, so two equal
// maxima inside one neighborhood are both dropped rather than one being
// kept. Peaks are emitted in scan order: t ascending, then f ascending.
func PickPeaks(spec [][]float64, floorDB float64, neighborT, neighborF int) []Peak {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil
	}

	nT := len(spec)
	nF := len(spec[0])
	halfT := neighborT / 2
	halfF := neighborF / 2

	var peaks []Peak
	for t := 0; t < nT; t++ {
		row := spec[t]
		for f := 0; f < nF; f++ {
			v := row[f]
			if v < floorDB {
				continue
			}
			if isStrictLocalMax(spec, t, f, v, halfT, halfF, nT, nF) {
				peaks = append(peaks, Peak{T: uint32(t), F: uint32(f)})
			}
		}
	}
	return peaks
}

func isStrictLocalMax(spec [][]float64, t, f int, v float64, halfT, halfF, nT, nF int) bool {
	for dt := -halfT; dt < halfT; dt++ {
		tt := reflect(t+dt, nT)
		for df := -halfF; df < halfF; df++ {
			ff := reflect(f+df, nF)
			// Near an edge, a neighbor offset can reflect back onto the
			// candidate's own cell even when (dt,df) isn't the literal
			// center — skip it there too, or the candidate is compared
			// against itself and always disqualified.
			if tt == t && ff == f {
				continue
			}
			if spec[tt][ff] >= v {
				return false
			}
		}
	}
	return true
}

// reflect maps an out-of-bounds index back into [0, n) by reflection for
// neighborhood comparisons at the spectrogram's time/frequency edges. The
// mirror excludes the boundary sample itself (index -1 maps to 1, not 0;
// index n maps to n-2, not n-1) so a peak sitting on t=0, t=n-1, f=0, or
// f=n-1 never gets compared against its own value.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
