package recognizer

import (
	"fmt"
	"sync"
	"time"

	"github.com/soundtrace/soundtrace/internal/audio"
	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/model"
)

// State is a session's position in the streaming state machine:
// INIT/LISTENING -> ANALYZING -> {MATCHED, NO_MATCH, LISTENING}.
type State string

const (
	StateListening State = "listening"
	StateAnalyzing State = "analyzing"
	StateMatched   State = "match_found"
	StateNoMatch   State = "no_match"
	StateError     State = "error"
)

// Event is what a session reports to whatever transport is draining it.
// At most one of Match/Err is set; Message carries a human-readable
// explanation for a terminal no_match (e.g. "no usable peaks") and is
// independent of Err, since an empty fingerprint is never an error.
type Event struct {
	Status      State
	DurationSec float64
	Match       *model.MatchResult
	Message     string
	Err         error
}

// Session accumulates resampled audio for one recognition attempt and
// drives attempts on its Engine's shared worker pool. A Session is safe
// for concurrent Feed calls from a single reader goroutine; Events() is
// meant to be drained by a second goroutine (the transport's writer loop).
type Session struct {
	id         string
	engine     *Engine
	sampleRate int

	mu                sync.Mutex
	buffer            []float64
	duration          time.Duration
	lastAttemptAt     time.Duration
	attemptInFlight   bool
	state             State
	closed            bool
	lastSeen          time.Time

	events chan Event
	done   chan struct{}
}

func (s *Session) ID() string { return s.id }

// Events returns the channel of state-machine events. It closes once the
// session reaches a terminal state or is explicitly closed.
func (s *Session) Events() <-chan Event { return s.events }

// Feed appends a chunk of PCM samples at the session's declared sample
// rate, resampling to the canonical analysis rate, and triggers a match
// attempt on the shared pool once the timing rules are met.
func (s *Session) Feed(pcm []float64) error {
	resampled, err := audio.Resample(pcm, s.sampleRate, config.AnalysisRate)
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrResample, err))
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	s.buffer = append(s.buffer, resampled...)

	// Sliding window: once the buffer holds more than MaxQuerySeconds, drop
	// the oldest samples so a session that never matches keeps a bounded
	// amount of recent audio instead of growing forever.
	if maxSamples := int(config.MaxQuerySeconds.Seconds() * float64(config.AnalysisRate)); len(s.buffer) > maxSamples {
		s.buffer = s.buffer[len(s.buffer)-maxSamples:]
	}

	s.duration = time.Duration(float64(len(s.buffer)) / float64(config.AnalysisRate) * float64(time.Second))
	s.lastSeen = time.Now()

	withinWindow := s.duration >= config.MinQuerySeconds
	dueForAttempt := (s.duration - s.lastAttemptAt) >= config.AttemptEverySeconds
	atCeiling := s.duration >= config.MaxQuerySeconds

	shouldAttempt := !s.attemptInFlight && withinWindow && (dueForAttempt || atCeiling)
	durationSec := s.duration.Seconds()

	if !shouldAttempt {
		s.mu.Unlock()
		s.emit(Event{Status: StateListening, DurationSec: durationSec})
		return nil
	}

	s.attemptInFlight = true
	s.lastAttemptAt = s.duration
	s.state = StateAnalyzing
	snapshot := append([]float64(nil), s.buffer...)
	giveUpAfter := atCeiling
	s.mu.Unlock()

	// emit takes s.mu itself, so both progress events must be sent after
	// unlocking here — Feed cannot hold the lock across an emit call.
	s.emit(Event{Status: StateListening, DurationSec: durationSec})
	s.emit(Event{Status: StateAnalyzing, DurationSec: durationSec})
	// Run off the caller's goroutine: Feed must return promptly so the
	// transport can keep pushing audio in while the pool chews on this
	// attempt. attemptInFlight (set above) is what keeps a second attempt
	// from being queued before this one resolves.
	go s.dispatch(snapshot, giveUpAfter)
	return nil
}

// dispatch submits samples to the engine's pool and waits for the result
// on a dedicated reply channel, bounding the wait to AttemptTimeout. The
// worker itself is not cancelled on timeout (the DSP pipeline has no
// cancellation points); dispatch simply stops waiting and reports the
// session timed out, so a slow attempt cannot stall the session forever.
func (s *Session) dispatch(samples []float64, giveUpAfter bool) {
	reply := make(chan attemptResult, 1)
	select {
	case s.engine.jobs <- job{samples: samples, reply: reply}:
	case <-s.done:
		return
	}

	select {
	case res := <-reply:
		s.deliver(res, giveUpAfter)
	case <-time.After(config.AttemptTimeout):
		s.deliver(attemptResult{err: ErrTimeout}, giveUpAfter)
	case <-s.done:
	}
}

func (s *Session) deliver(res attemptResult, giveUpAfter bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.attemptInFlight = false

	switch {
	case res.err != nil:
		s.state = StateError
		s.mu.Unlock()
		s.emit(Event{Status: StateError, Err: res.err})
		s.Close()
		return

	case res.matched:
		s.state = StateMatched
		s.mu.Unlock()
		match, err := s.engine.resolveMatch(res.candidate)
		if err != nil {
			s.emit(Event{Status: StateError, Err: err})
			s.Close()
			return
		}
		s.emit(Event{Status: StateMatched, Match: &match})
		s.Close()
		return

	// A rejected attempt ends the session once the buffer holds
	// MaxQuerySeconds, even when the snapshot it analyzed was shorter.
	case giveUpAfter || s.duration >= config.MaxQuerySeconds:
		s.state = StateNoMatch
		s.mu.Unlock()
		s.emit(Event{Status: StateNoMatch, Message: res.message})
		s.Close()
		return

	default:
		s.state = StateListening
		s.mu.Unlock()
		return
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.mu.Unlock()
	s.emit(Event{Status: StateError, Err: err})
	s.Close()
}

// watchdog closes idle sessions: one that stops receiving audio without
// ever producing a terminal result is reclaimed rather than held open
// indefinitely.
func (s *Session) watchdog() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastSeen)
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			if idle >= config.IdleTimeout {
				s.fail(fmt.Errorf("%w: idle for %s", ErrTransport, idle.Round(time.Second)))
				return
			}
		}
	}
}

// emit sends under the session mutex so it can never race with Close's
// channel close: either emit observes closed==true and drops the send, or
// it runs first and Close waits its turn before closing the channel.
func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// Close terminates the session and closes its event channel. Safe to
// call multiple times and from any goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.events)
}
