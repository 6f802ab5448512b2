// Package model defines the catalog's persistent and transient data types.
package model

import "encoding/json"

// Song is a persistent catalog entry. Immutable after insert except for
// Metadata and deletion.
type Song struct {
	ID          int64
	Title       string
	Artist      string
	Album       string
	DurationSec float64
	Path        string
	FileHash    string // MD5 of the raw uploaded bytes, used for idempotent re-add
	Metadata    json.RawMessage
}

// Posting is a single fingerprint index entry: hash -> (song, anchor_time).
type Posting struct {
	Hash       string // 20 hex chars
	SongID     int64
	AnchorTime uint32 // time-bin index of the anchor peak
}

// Stats reports catalog-wide counters.
type Stats struct {
	SongCount    int64
	PostingCount int64
}

// MatchResult is the outcome of a recognition attempt against one candidate
// song. Analysis is an opaque pass-through enrichment field, never populated
// by this implementation.
type MatchResult struct {
	Song       Song
	Peak       int     // aligned hash count for the winning offset
	ScoreRatio float64 // peak(top) / max(peak(second), 1)
	Confidence float64 // 0-100
	OffsetBin  int32   // winning Δ in time-bin units
	Analysis   json.RawMessage
}
