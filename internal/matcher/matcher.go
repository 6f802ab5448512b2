// Package matcher implements the histogram-based scoring stage: join
// query hashes against catalog postings, accumulate a per-song offset
// histogram, and rank candidates.
package matcher

import (
	"sort"

	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/model"
)

// Candidate is a scored song, before the final accept/reject decision.
type Candidate struct {
	SongID     int64
	Peak       int     // aligned hash count at the winning offset
	Offset     int32   // winning Δ = anchor_time - query_time
	ScoreRatio float64 // peak(top) / max(peak(second), 1)
	Confidence float64 // 0-100
}

// Match joins query hashes against the postings retrieved for them and
// returns ranked candidates (descending by Peak). queryHashes may contain
// duplicate values; each distinct value is joined exactly once against
// all of its anchor times in queryTimes. totalQueryHashes is the
// denominator for confidence and must be the total number of hashes the
// query generated (duplicates included), not the distinct count and not
// the count that happened to find a posting.
func Match(queryHashes []string, queryTimes map[string][]uint32, postings map[string][]model.Posting, totalQueryHashes int) []Candidate {
	// histogram[songID][offset] = count
	histogram := make(map[int64]map[int32]int)

	// queryHashes may repeat the same value many times (a common (f_a,f_p,dt)
	// triple recurs often in tonal/swept audio); queryTimes already holds every
	// anchor time for a value, so each distinct value must be visited once or
	// the join double-counts combinatorially.
	seen := make(map[string]bool, len(queryHashes))
	for _, hash := range queryHashes {
		if seen[hash] {
			continue
		}
		seen[hash] = true

		bucket, ok := postings[hash]
		if !ok {
			continue
		}
		for _, qt := range queryTimes[hash] {
			for _, post := range bucket {
				delta := int32(post.AnchorTime) - int32(qt)
				songHist, ok := histogram[post.SongID]
				if !ok {
					songHist = make(map[int32]int)
					histogram[post.SongID] = songHist
				}
				songHist[delta]++
			}
		}
	}

	type peak struct {
		songID int64
		count  int
		offset int32
	}
	peaks := make([]peak, 0, len(histogram))
	for songID, offsets := range histogram {
		var best peak
		best.songID = songID
		for off, cnt := range offsets {
			if cnt > best.count {
				best.count = cnt
				best.offset = off
			}
		}
		peaks = append(peaks, best)
	}

	sort.Slice(peaks, func(i, j int) bool { return peaks[i].count > peaks[j].count })

	denom := float64(totalQueryHashes)
	if denom < 1 {
		denom = 1
	}

	second := 0
	if len(peaks) > 1 {
		second = peaks[1].count
	}
	if second < 1 {
		second = 1
	}

	// score_ratio is only meaningful as "how much the top candidate beats
	// the runner-up"; it is computed once against peak(top) and reported
	// on every candidate for convenience (Accept only ever looks at
	// candidates[0]).
	top := 0
	if len(peaks) > 0 {
		top = peaks[0].count
	}

	candidates := make([]Candidate, len(peaks))
	for i, p := range peaks {
		candidates[i] = Candidate{
			SongID:     p.songID,
			Peak:       p.count,
			Offset:     p.offset,
			Confidence: clampConfidence(100 * float64(p.count) / denom),
			ScoreRatio: float64(top) / float64(second),
		}
	}

	return candidates
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Accept applies the acceptance rule to the top candidate.
func Accept(top Candidate) bool {
	return top.Peak >= config.MinAligned &&
		top.ScoreRatio >= config.MinRatio &&
		top.Confidence >= config.MinConfidence
}
