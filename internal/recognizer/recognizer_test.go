package recognizer

import (
	"math"
	"testing"
	"time"

	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/dsp"
	"github.com/soundtrace/soundtrace/internal/fingerprint"
	"github.com/soundtrace/soundtrace/internal/logging"
	"github.com/soundtrace/soundtrace/internal/model"
)

// fakeStore is an in-memory catalog.Store stand-in for exercising the
// recognizer without a real database.
type fakeStore struct {
	songs    map[int64]model.Song
	postings map[string][]model.Posting
}

func newFakeStore() *fakeStore {
	return &fakeStore{songs: map[int64]model.Song{}, postings: map[string][]model.Posting{}}
}

func (f *fakeStore) AddSong(song model.Song, postings []model.Posting) (int64, error) {
	id := int64(len(f.songs) + 1)
	song.ID = id
	f.songs[id] = song
	for _, p := range postings {
		p.SongID = id
		f.postings[p.Hash] = append(f.postings[p.Hash], p)
	}
	return id, nil
}
func (f *fakeStore) DeleteSong(id int64) error { delete(f.songs, id); return nil }
func (f *fakeStore) GetSong(id int64) (*model.Song, error) {
	s, ok := f.songs[id]
	if !ok {
		return nil, ErrCatalog
	}
	return &s, nil
}
func (f *fakeStore) FindByFileHash(string) (*model.Song, error) { return nil, nil }
func (f *fakeStore) ListSongs() ([]model.Song, error)           { return nil, nil }
func (f *fakeStore) Lookup(hashes []string) (map[string][]model.Posting, error) {
	out := map[string][]model.Posting{}
	for _, h := range hashes {
		if p, ok := f.postings[h]; ok {
			out[h] = p
		}
	}
	return out, nil
}
func (f *fakeStore) Stats() (model.Stats, error) { return model.Stats{}, nil }
func (f *fakeStore) Close() error                { return nil }

func toneSamples(freq float64, seconds float64, rate int) []float64 {
	n := int(seconds * float64(rate))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

// indexSong runs the real fingerprinting pipeline over a synthetic clip
// and stores it, so a session fed the same clip has something to match.
func indexSong(t *testing.T, store *fakeStore, samples []float64) int64 {
	t.Helper()
	spec, err := dsp.Spectrogram(samples, config.WindowSize, config.HopSize)
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}
	peaks := dsp.PickPeaks(spec, config.FloorDB, config.PeakNeighborT, config.PeakNeighborF)
	hashes := fingerprint.Generate(peaks, fingerprint.Params{
		MinDeltaFrames: config.MinDeltaFrames,
		MaxDeltaFrames: config.MaxDeltaFrames,
		MaxDeltaFreq:   config.MaxDeltaFreq,
		FanOut:         config.FanOut,
	})
	postings := fingerprint.ToPostings(hashes, 0)
	id, err := store.AddSong(model.Song{Title: "Indexed"}, postings)
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	return id
}

func TestSessionMatchesIndexedClip(t *testing.T) {
	store := newFakeStore()
	samples := toneSamples(440, 6, config.AnalysisRate)
	indexSong(t, store, samples)

	engine := NewEngine(store, logging.GetLogger(), 2)
	defer engine.Close()

	session := engine.NewSession(config.AnalysisRate)
	defer session.Close()

	chunk := config.AnalysisRate // 1 second chunks
	for i := 0; i*chunk < len(samples); i++ {
		end := (i + 1) * chunk
		if end > len(samples) {
			end = len(samples)
		}
		if err := session.Feed(samples[i*chunk : end]); err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-session.Events():
			if !ok {
				t.Fatal("session closed before producing a matched event")
			}
			if ev.Status == StateMatched {
				if ev.Match == nil {
					t.Fatal("matched event missing Match payload")
				}
				return
			}
			if ev.Status == StateError {
				t.Fatalf("session reported error: %v", ev.Err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for a match")
		}
	}
}

func TestSessionReportsNoMatchForSilence(t *testing.T) {
	store := newFakeStore()
	indexSong(t, store, toneSamples(440, 6, config.AnalysisRate))

	engine := NewEngine(store, logging.GetLogger(), 2)
	defer engine.Close()

	session := engine.NewSession(config.AnalysisRate)
	defer session.Close()

	silence := make([]float64, config.AnalysisRate*int(config.MaxQuerySeconds/time.Second+1))
	chunk := config.AnalysisRate
	go func() {
		for i := 0; i*chunk < len(silence); i++ {
			end := (i + 1) * chunk
			if end > len(silence) {
				end = len(silence)
			}
			session.Feed(silence[i*chunk : end])
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-session.Events():
			if !ok {
				return
			}
			if ev.Status == StateNoMatch || ev.Status == StateMatched {
				if ev.Status == StateMatched {
					t.Fatal("expected no_match for silence, got a match")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for a no_match resolution")
		}
	}
}

func TestFeedRejectsNonPositiveSampleRateViaResample(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, logging.GetLogger(), 1)
	defer engine.Close()

	session := engine.NewSession(0)
	defer session.Close()

	if err := session.Feed([]float64{0.1, 0.2, 0.3}); err == nil {
		t.Fatal("expected an error feeding a session with an invalid sample rate")
	}
}
