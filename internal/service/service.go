// Package service orchestrates the offline pipeline stages — decode,
// resample, spectrogram, peak-pick, fingerprint, persist/match — behind
// the two operations every caller (the REST handlers, the CLI, tests)
// actually needs: adding a song to the catalog and matching a file
// against it.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soundtrace/soundtrace/internal/audio"
	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/dsp"
	"github.com/soundtrace/soundtrace/internal/fingerprint"
	"github.com/soundtrace/soundtrace/internal/logging"
	"github.com/soundtrace/soundtrace/internal/matcher"
	"github.com/soundtrace/soundtrace/internal/model"
)

// Metadata is the caller-supplied tagging for a song being added; it
// never drives the fingerprinting pipeline, only the catalog record.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Service is the orchestration surface exposed to transports.
type Service struct {
	store catalog.Store
	log   *logging.Logger
}

func New(store catalog.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.GetLogger()
	}
	return &Service{store: store, log: log}
}

// AddSong fingerprints the WAV file at path and stores it in the catalog.
// If a song with the same file content already exists, its id is
// returned without re-processing.
func (s *Service) AddSong(ctx context.Context, path string, meta Metadata) (int64, error) {
	s.log.Infof("Processing song: %s by %s (%s)", meta.Title, meta.Artist, path)

	hash, err := audio.FileHash(path)
	if err != nil {
		return 0, fmt.Errorf("hashing file: %w", err)
	}
	if existing, err := s.store.FindByFileHash(hash); err != nil {
		return 0, fmt.Errorf("checking for duplicate: %w", err)
	} else if existing != nil {
		s.log.Infof("Song %s already catalogued as id=%d, skipping re-fingerprint", path, existing.ID)
		return existing.ID, nil
	}

	peaks, duration, _, err := s.fingerprintFile(ctx, path)
	if err != nil {
		return 0, err
	}
	s.log.Infof("Extracted %d peaks from %s", len(peaks), path)

	hashes := fingerprint.Generate(peaks, pipelineParams())
	s.log.Infof("Generated %d hashes", len(hashes))

	metaBlob, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("encoding metadata: %w", err)
	}

	song := model.Song{
		Title:       meta.Title,
		Artist:      meta.Artist,
		Album:       meta.Album,
		DurationSec: duration,
		Path:        path,
		FileHash:    hash,
		Metadata:    metaBlob,
	}

	// The store assigns the real song id inside the same transaction that
	// inserts postings, so the placeholder 0 here is never persisted.
	id, err := s.store.AddSong(song, fingerprint.ToPostings(hashes, 0))
	if err != nil {
		return 0, fmt.Errorf("storing song: %w", err)
	}
	s.log.Infof("Successfully added song id=%d", id)
	return id, nil
}

// MatchFile fingerprints the WAV file at path and returns ranked,
// accepted candidates against the catalog.
func (s *Service) MatchFile(ctx context.Context, path string) ([]model.MatchResult, error) {
	s.log.Infof("Matching audio: %s", path)

	peaks, _, _, err := s.fingerprintFile(ctx, path)
	if err != nil {
		return nil, err
	}
	hashes := fingerprint.Generate(peaks, pipelineParams())
	s.log.Infof("Query generated %d hashes", len(hashes))

	queryHashes, queryTimes := fingerprint.Query(hashes)

	postings, err := s.store.Lookup(queryHashes)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	candidates := matcher.Match(queryHashes, queryTimes, postings, len(hashes))
	results := make([]model.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if !matcher.Accept(c) {
			continue
		}
		song, err := s.store.GetSong(c.SongID)
		if err != nil {
			s.log.Warnf("failed to load song %d: %v", c.SongID, err)
			continue
		}
		results = append(results, model.MatchResult{
			Song:       *song,
			Peak:       c.Peak,
			ScoreRatio: c.ScoreRatio,
			Confidence: c.Confidence,
			OffsetBin:  c.Offset,
		})
	}
	s.log.Infof("Returning %d accepted matches", len(results))
	return results, nil
}

func (s *Service) ListSongs() ([]model.Song, error) { return s.store.ListSongs() }
func (s *Service) GetSong(id int64) (*model.Song, error) { return s.store.GetSong(id) }
func (s *Service) DeleteSong(id int64) error              { return s.store.DeleteSong(id) }
func (s *Service) Stats() (model.Stats, error)            { return s.store.Stats() }
func (s *Service) Close() error                           { return s.store.Close() }

// fingerprintFile runs decode -> resample -> spectrogram -> peak-pick for
// a single file, returning the peaks, the clip's duration in seconds, and
// its native sample rate.
func (s *Service) fingerprintFile(_ context.Context, path string) ([]dsp.Peak, float64, int, error) {
	samples, srcRate, err := audio.DecodeWAVFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding: %w", err)
	}
	duration := float64(len(samples)) / float64(srcRate)

	analysisSamples, err := audio.ToAnalysisRate(samples, srcRate)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("resampling: %w", err)
	}

	spec, err := dsp.Spectrogram(analysisSamples, config.WindowSize, config.HopSize)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("spectrogram: %w", err)
	}

	peaks := dsp.PickPeaks(spec, config.FloorDB, config.PeakNeighborT, config.PeakNeighborF)
	return peaks, duration, srcRate, nil
}

func pipelineParams() fingerprint.Params {
	return fingerprint.Params{
		MinDeltaFrames: config.MinDeltaFrames,
		MaxDeltaFrames: config.MaxDeltaFrames,
		MaxDeltaFreq:   config.MaxDeltaFreq,
		FanOut:         config.FanOut,
	}
}
