package fingerprint

import (
	"sort"

	"github.com/soundtrace/soundtrace/internal/dsp"
	"github.com/soundtrace/soundtrace/internal/model"
)

// Params bundles the target-zone and fan-out tunables.
type Params struct {
	MinDeltaFrames uint32
	MaxDeltaFrames uint32
	MaxDeltaFreq   uint32
	FanOut         int
}

// Hash is a single (hash, anchor time) emission, prior to being attached to
// a song id and persisted as a model.Posting.
type Hash struct {
	Value      string
	AnchorTime uint32
}

// Generate performs the combinatorial pairing: for each anchor peak,
// partners within the target zone are considered in ascending (t, f)
// order and up to FanOut pairs are emitted per anchor.
func Generate(peaks []dsp.Peak, p Params) []Hash {
	sorted := make([]dsp.Peak, len(peaks))
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].T != sorted[j].T {
			return sorted[i].T < sorted[j].T
		}
		return sorted[i].F < sorted[j].F
	})

	var out []Hash
	for i, anchor := range sorted {
		emitted := 0
		for j := i + 1; j < len(sorted) && emitted < p.FanOut; j++ {
			partner := sorted[j]
			dt := partner.T - anchor.T
			if dt < p.MinDeltaFrames || dt > p.MaxDeltaFrames {
				continue
			}
			df := diff(partner.F, anchor.F)
			if df > p.MaxDeltaFreq {
				continue
			}
			out = append(out, Hash{
				Value:      HashPeaks(anchor.F, partner.F, dt),
				AnchorTime: anchor.T,
			})
			emitted++
		}
	}
	return out
}

func diff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// ToPostings attaches a song id to a batch of generated hashes, producing
// the postings the catalog store persists.
func ToPostings(hashes []Hash, songID int64) []model.Posting {
	out := make([]model.Posting, len(hashes))
	for i, h := range hashes {
		out[i] = model.Posting{Hash: h.Value, SongID: songID, AnchorTime: h.AnchorTime}
	}
	return out
}

// Query collapses a batch of generated hashes into the shape a catalog
// lookup and matcher join need: a deduplicated list of distinct values
// (so Lookup's `hash IN (...)` never binds the same value twice) and the
// full set of anchor times each value was emitted at.
func Query(hashes []Hash) (values []string, times map[string][]uint32) {
	times = make(map[string][]uint32, len(hashes))
	for _, h := range hashes {
		if _, ok := times[h.Value]; !ok {
			values = append(values, h.Value)
		}
		times[h.Value] = append(times[h.Value], h.AnchorTime)
	}
	return values, times
}
