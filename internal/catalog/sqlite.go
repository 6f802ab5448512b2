package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soundtrace/soundtrace/internal/model"
)

// songRow and fingerprintRow are the GORM models for the persisted
// layout: songs(id, title, artist, album, duration_sec, path, file_hash,
// metadata_blob, created_at) and fingerprints(id, hash, song_id,
// anchor_time) with indexes on hash and song_id. No foreign-key constraint
// is declared on song_id; DeleteSong removes a song's postings itself, in
// the same transaction as the song row.
type songRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Title        string `gorm:"index:idx_song_meta,priority:1"`
	Artist       string `gorm:"index:idx_song_meta,priority:2"`
	Album        string
	DurationSec  float64
	Path         string
	FileHash     string `gorm:"index:idx_file_hash"`
	MetadataBlob []byte
	CreatedAt    time.Time
}

func (songRow) TableName() string { return "songs" }

type fingerprintRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Hash       string `gorm:"type:varchar(20);index:idx_hash" `
	SongID     int64  `gorm:"index:idx_fp_song"`
	AnchorTime uint32
}

func (fingerprintRow) TableName() string { return "fingerprints" }

// SQLiteStore is the gorm.io/gorm + glebarez/sqlite backed Store
// implementation.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if absent) a catalog database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("catalog: getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&songRow{}, &fingerprintRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("catalog: auto migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddSong persists a song and its fingerprint postings atomically: both
// the metadata row and every posting commit together, or nothing does.
func (s *SQLiteStore) AddSong(song model.Song, postings []model.Posting) (int64, error) {
	var id int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row := songRow{
			Title:        song.Title,
			Artist:       song.Artist,
			Album:        song.Album,
			DurationSec:  song.DurationSec,
			Path:         song.Path,
			FileHash:     song.FileHash,
			MetadataBlob: []byte(song.Metadata),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting song: %w", err)
		}
		id = row.ID

		rows := make([]fingerprintRow, len(postings))
		for i, p := range postings {
			rows[i] = fingerprintRow{Hash: p.Hash, SongID: id, AnchorTime: p.AnchorTime}
		}
		const batchSize = 500
		for start := 0; start < len(rows); start += batchSize {
			end := start + batchSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := tx.CreateInBatches(rows[start:end], batchSize).Error; err != nil {
				return fmt.Errorf("inserting postings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) DeleteSong(songID int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&fingerprintRow{}).Error; err != nil {
			return fmt.Errorf("deleting postings: %w", err)
		}
		if err := tx.Where("id = ?", songID).Delete(&songRow{}).Error; err != nil {
			return fmt.Errorf("deleting song: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) GetSong(songID int64) (*model.Song, error) {
	var row songRow
	if err := s.db.First(&row, songID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("catalog: song %d not found", songID)
		}
		return nil, err
	}
	song := rowToSong(row)
	return &song, nil
}

func (s *SQLiteStore) FindByFileHash(hash string) (*model.Song, error) {
	if hash == "" {
		return nil, nil
	}
	var row songRow
	err := s.db.Where("file_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	song := rowToSong(row)
	return &song, nil
}

func (s *SQLiteStore) ListSongs() ([]model.Song, error) {
	var rows []songRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Song, len(rows))
	for i, r := range rows {
		out[i] = rowToSong(r)
	}
	return out, nil
}

// Lookup performs the required batched join: `hash IN (...)` queries over
// the full set of distinct query hashes, never a per-hash call. A query
// can carry thousands of distinct hashes, past SQLite's default bound
// parameter limit, so the IN list is chunked the same way AddSong batches
// its inserts.
func (s *SQLiteStore) Lookup(hashes []string) (map[string][]model.Posting, error) {
	if len(hashes) == 0 {
		return map[string][]model.Posting{}, nil
	}

	const chunkSize = 900
	out := make(map[string][]model.Posting)
	for start := 0; start < len(hashes); start += chunkSize {
		end := start + chunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		var rows []fingerprintRow
		if err := s.db.Where("hash IN ?", hashes[start:end]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("catalog: batch lookup: %w", err)
		}
		for _, r := range rows {
			out[r.Hash] = append(out[r.Hash], model.Posting{
				Hash:       r.Hash,
				SongID:     r.SongID,
				AnchorTime: r.AnchorTime,
			})
		}
	}
	return out, nil
}

func (s *SQLiteStore) Stats() (model.Stats, error) {
	var stats model.Stats
	if err := s.db.Model(&songRow{}).Count(&stats.SongCount).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&fingerprintRow{}).Count(&stats.PostingCount).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToSong(r songRow) model.Song {
	return model.Song{
		ID:          r.ID,
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		DurationSec: r.DurationSec,
		Path:        r.Path,
		FileHash:    r.FileHash,
		Metadata:    json.RawMessage(r.MetadataBlob),
	}
}

var _ Store = (*SQLiteStore)(nil)
