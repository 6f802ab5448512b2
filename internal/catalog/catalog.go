// Package catalog implements the catalog store: persistent song metadata
// and the inverted fingerprint index, backed by GORM over a pure-Go SQLite
// driver.
package catalog

import "github.com/soundtrace/soundtrace/internal/model"

// Store is the catalog store contract. Implementations must batch Lookup
// over many hashes per query — per-hash round trips are disallowed at the
// contract level because the matcher passes thousands of hashes at once.
type Store interface {
	AddSong(song model.Song, postings []model.Posting) (int64, error)
	DeleteSong(songID int64) error
	GetSong(songID int64) (*model.Song, error)
	FindByFileHash(hash string) (*model.Song, error)
	ListSongs() ([]model.Song, error)
	Lookup(hashes []string) (map[string][]model.Posting, error)
	Stats() (model.Stats, error)
	Close() error
}
