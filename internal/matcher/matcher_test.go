package matcher

import (
	"testing"

	"github.com/soundtrace/soundtrace/internal/model"
)

func TestMatchRanksByAlignedCount(t *testing.T) {
	queryHashes := []string{"h1", "h2", "h3"}
	queryTimes := map[string][]uint32{
		"h1": {10},
		"h2": {20},
		"h3": {30},
	}
	// Song A aligns all three at delta=100; song B aligns only one.
	postings := map[string][]model.Posting{
		"h1": {{Hash: "h1", SongID: 1, AnchorTime: 110}, {Hash: "h1", SongID: 2, AnchorTime: 5000}},
		"h2": {{Hash: "h2", SongID: 1, AnchorTime: 120}},
		"h3": {{Hash: "h3", SongID: 1, AnchorTime: 130}},
	}

	candidates := Match(queryHashes, queryTimes, postings, len(queryHashes))
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].SongID != 1 {
		t.Fatalf("expected song 1 to rank first, got %d", candidates[0].SongID)
	}
	if candidates[0].Peak != 3 {
		t.Fatalf("expected peak=3 for song 1, got %d", candidates[0].Peak)
	}
	if candidates[0].Offset != 100 {
		t.Fatalf("expected winning offset 100, got %d", candidates[0].Offset)
	}
}

func TestMatchConfidenceFormula(t *testing.T) {
	queryHashes := []string{"h1", "h2"}
	queryTimes := map[string][]uint32{"h1": {0}, "h2": {0}}
	postings := map[string][]model.Posting{
		"h1": {{Hash: "h1", SongID: 1, AnchorTime: 0}},
		"h2": {{Hash: "h2", SongID: 1, AnchorTime: 0}},
	}

	candidates := Match(queryHashes, queryTimes, postings, 2)
	if candidates[0].Confidence != 100 {
		t.Fatalf("expected 100%% confidence (2/2 aligned), got %f", candidates[0].Confidence)
	}
}

func TestMatchDoesNotDoubleCountRepeatedHashValues(t *testing.T) {
	// "h1" appears twice in queryHashes (a recurring (f_a,f_p,dt) triple,
	// common in tonal/swept audio) but queryTimes["h1"] still lists its one
	// anchor time once. A naive join that iterates queryHashes directly
	// would revisit that one (value, time) pairing against the bucket twice
	// instead of once, inflating the histogram quadratically with the
	// repeat count.
	queryHashes := []string{"h1", "h1"}
	queryTimes := map[string][]uint32{"h1": {10}}
	postings := map[string][]model.Posting{
		"h1": {{Hash: "h1", SongID: 1, AnchorTime: 110}},
	}

	candidates := Match(queryHashes, queryTimes, postings, len(queryHashes))
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Peak != 1 {
		t.Fatalf("expected peak=1 (one distinct value, one time, one posting), got %d", candidates[0].Peak)
	}
}

func TestMatchNoPostingsYieldsNoCandidates(t *testing.T) {
	candidates := Match([]string{"h1"}, map[string][]uint32{"h1": {0}}, nil, 1)
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates when no postings exist, got %d", len(candidates))
	}
}

func TestAcceptRequiresAllThreeThresholds(t *testing.T) {
	weak := Candidate{Peak: 4, ScoreRatio: 3.0, Confidence: 50}
	if Accept(weak) {
		t.Error("expected reject: peak below MinAligned(5)")
	}

	tied := Candidate{Peak: 10, ScoreRatio: 1.0, Confidence: 50}
	if Accept(tied) {
		t.Error("expected reject: score ratio below MinRatio(2.0)")
	}

	lowConf := Candidate{Peak: 10, ScoreRatio: 3.0, Confidence: 5}
	if Accept(lowConf) {
		t.Error("expected reject: confidence below MinConfidence(10)")
	}

	strong := Candidate{Peak: 10, ScoreRatio: 3.0, Confidence: 50}
	if !Accept(strong) {
		t.Error("expected accept: all thresholds cleared")
	}
}
