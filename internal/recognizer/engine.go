// Package recognizer implements the streaming recognition state machine:
// a bounded worker pool attempts fingerprint matches against accumulating
// audio as new chunks arrive, independent of whatever transport (WebSocket, raw
// TCP, an in-process test) is feeding it PCM.
package recognizer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/dsp"
	"github.com/soundtrace/soundtrace/internal/fingerprint"
	"github.com/soundtrace/soundtrace/internal/logging"
	"github.com/soundtrace/soundtrace/internal/matcher"
	"github.com/soundtrace/soundtrace/internal/model"
)

// attemptResult is what a worker hands back to the session that queued it.
// message explains a non-matched, non-error outcome (e.g. too few peaks to
// fingerprint) so a terminal no_match can carry a reason instead of silence.
type attemptResult struct {
	candidate matcher.Candidate
	matched   bool
	message   string
	err       error
}

type job struct {
	samples []float64
	reply   chan attemptResult
}

// Engine owns the catalog connection and a fixed-size pool of goroutines
// that run fingerprint-match attempts. Sessions submit work to the shared
// pool rather than spawning their own goroutines, bounding total
// concurrent DSP work regardless of how many sessions are open.
type Engine struct {
	store catalog.Store
	log   *logging.Logger

	jobs chan job
	wg   sync.WaitGroup
	quit chan struct{}
}

// NewEngine starts poolSize worker goroutines draining attempt jobs.
func NewEngine(store catalog.Store, log *logging.Logger, poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = 1
	}
	e := &Engine{
		store: store,
		log:   log,
		jobs:  make(chan job, poolSize*4),
		quit:  make(chan struct{}),
	}
	for i := 0; i < poolSize; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quit:
			return
		case j, ok := <-e.jobs:
			if !ok {
				return
			}
			j.reply <- e.attempt(j.samples)
		}
	}
}

func (e *Engine) attempt(samples []float64) attemptResult {
	spec, err := dsp.Spectrogram(samples, config.WindowSize, config.HopSize)
	if err != nil {
		// Too few samples for even one STFT frame is an empty fingerprint,
		// not a failure of the attempt: report it the same way an all-silent
		// buffer is reported below, never as StateError.
		return attemptResult{message: ErrEmptyFingerprint.Error()}
	}

	peaks := dsp.PickPeaks(spec, config.FloorDB, config.PeakNeighborT, config.PeakNeighborF)
	if len(peaks) == 0 {
		return attemptResult{message: ErrEmptyFingerprint.Error()}
	}

	hashes := fingerprint.Generate(peaks, fingerprint.Params{
		MinDeltaFrames: config.MinDeltaFrames,
		MaxDeltaFrames: config.MaxDeltaFrames,
		MaxDeltaFreq:   config.MaxDeltaFreq,
		FanOut:         config.FanOut,
	})
	if len(hashes) == 0 {
		return attemptResult{message: "no fingerprint pairs could be generated from buffered audio"}
	}

	queryHashes, queryTimes := fingerprint.Query(hashes)

	postings, err := e.store.Lookup(queryHashes)
	if err != nil {
		return attemptResult{err: fmt.Errorf("%w: %v", ErrCatalog, err)}
	}

	candidates := matcher.Match(queryHashes, queryTimes, postings, len(hashes))
	if len(candidates) == 0 || !matcher.Accept(candidates[0]) {
		return attemptResult{}
	}
	return attemptResult{candidate: candidates[0], matched: true}
}

// NewSession opens a session that will accumulate PCM at sampleRate and
// attempt matches on this engine's worker pool. Callers drain Events()
// until it closes; Feed pushes audio in.
func (e *Engine) NewSession(sampleRate int) *Session {
	s := &Session{
		id:         uuid.NewString(),
		engine:     e,
		sampleRate: sampleRate,
		state:      StateListening,
		events:     make(chan Event, 8),
		done:       make(chan struct{}),
		lastSeen:   time.Now(),
	}
	go s.watchdog()
	return s
}

// Close stops the worker pool and waits for every worker to exit. A worker
// already running an attempt finishes it; jobs still queued in the channel
// may be dropped without running.
func (e *Engine) Close() {
	close(e.quit)
	close(e.jobs)
	e.wg.Wait()
}

// resolveMatch turns a matched candidate into the public model.MatchResult
// shape, looking the song up in the catalog.
func (e *Engine) resolveMatch(c matcher.Candidate) (model.MatchResult, error) {
	song, err := e.store.GetSong(c.SongID)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return model.MatchResult{
		Song:       *song,
		Peak:       c.Peak,
		ScoreRatio: c.ScoreRatio,
		Confidence: c.Confidence,
		OffsetBin:  c.Offset,
	}, nil
}
