package service

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/logging"
)

// writeToneWAV renders a mono sine tone to a 16-bit PCM WAV file for
// pipeline tests that need a real decodable file on disk.
func writeToneWAV(t *testing.T, path string, freq float64, seconds float64, rate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	n := int(seconds * float64(rate))
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(32000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, logging.GetLogger())
}

func TestAddSongThenMatchFindsItself(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	writeToneWAV(t, path, 440, 8, 22050)

	id, err := svc.AddSong(context.Background(), path, Metadata{Title: "Test Tone", Artist: "Nobody"})
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero song id")
	}

	results, err := svc.MatchFile(context.Background(), path)
	if err != nil {
		t.Fatalf("MatchFile: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected the song to match itself")
	}
	if results[0].Song.ID != id {
		t.Fatalf("expected top match to be song %d, got %d", id, results[0].Song.ID)
	}
}

func TestAddSongIsIdempotentByFileContent(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	writeToneWAV(t, path, 220, 6, 22050)

	id1, err := svc.AddSong(context.Background(), path, Metadata{Title: "One"})
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	id2, err := svc.AddSong(context.Background(), path, Metadata{Title: "Two"})
	if err != nil {
		t.Fatalf("AddSong (duplicate): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected re-adding identical file content to return the same id, got %d and %d", id1, id2)
	}

	songs, err := svc.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("expected exactly 1 catalogued song, got %d", len(songs))
	}
}

func TestMatchFileRejectsUnrelatedClip(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	indexed := filepath.Join(dir, "indexed.wav")
	writeToneWAV(t, indexed, 440, 8, 22050)
	if _, err := svc.AddSong(context.Background(), indexed, Metadata{Title: "Indexed"}); err != nil {
		t.Fatalf("AddSong: %v", err)
	}

	unrelated := filepath.Join(dir, "unrelated.wav")
	writeToneWAV(t, unrelated, 880, 4, 22050)

	results, err := svc.MatchFile(context.Background(), unrelated)
	if err != nil {
		t.Fatalf("MatchFile: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no accepted matches for an unrelated tone, got %d", len(results))
	}
}

func TestDeleteSongRemovesItFromFutureMatches(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	writeToneWAV(t, path, 330, 8, 22050)

	id, err := svc.AddSong(context.Background(), path, Metadata{Title: "Gone"})
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	if err := svc.DeleteSong(id); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}

	results, err := svc.MatchFile(context.Background(), path)
	if err != nil {
		t.Fatalf("MatchFile: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches after deletion, got %d", len(results))
	}
}
