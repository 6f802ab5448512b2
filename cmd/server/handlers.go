package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/logging"
	"github.com/soundtrace/soundtrace/internal/model"
	"github.com/soundtrace/soundtrace/internal/recognizer"
	"github.com/soundtrace/soundtrace/internal/service"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	svc    *service.Service
	engine *recognizer.Engine
	config *config.Config
	log    *logging.Logger
}

// NewServer creates a new server instance.
func NewServer(svc *service.Service, store catalog.Store, cfg *config.Config) *Server {
	log := logging.GetLogger()
	return &Server{
		svc:    svc,
		engine: recognizer.NewEngine(store, log, cfg.WorkerPoolSize),
		config: cfg,
		log:    log,
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "soundtrace API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"matchFile":  "POST /api/match",
			"recognize":  "WS /ws/recognize",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	if err != nil {
		s.log.Errorf("Failed to get stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		DatabasePath:     s.config.DBPath,
		SongCount:        stats.SongCount,
		FingerprintCount: stats.PostingCount,
	})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.svc.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = songToDTO(song)
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID int64) {
	song, err := s.svc.GetSong(songID)
	if err != nil {
		s.log.Warnf("Song not found: %d", songID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %d not found", songID))
		return
	}
	s.respondJSON(w, http.StatusOK, songToDTO(*song))
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID int64) {
	song, err := s.svc.GetSong(songID)
	if err != nil {
		s.log.Warnf("Song not found for deletion: %d", songID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %d not found", songID))
		return
	}

	if err := s.svc.DeleteSong(songID); err != nil {
		s.log.Errorf("Failed to delete song %d: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	s.log.Infof("Deleted song: %s by %s (ID: %d)", song.Title, song.Artist, songID)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{Message: "Song deleted successfully", ID: songID})
}

// handleAddSongFile handles POST /api/songs (multipart file upload).
func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	album := r.FormValue("album")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempFile := filepath.Join(os.TempDir(), fmt.Sprintf("upload_%d_%s", time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Adding song from file: %s by %s", title, artist)
	songID, err := s.svc.AddSong(ctx, tempFile, service.Metadata{Title: title, Artist: artist, Album: album})
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Successfully added song: %s by %s (ID: %d)", title, artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully", ID: songID, Title: title, Artist: artist,
	})
}

// handleMatchFile handles POST /api/match (multipart file upload).
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempFile := filepath.Join(os.TempDir(), fmt.Sprintf("query_%d_%s", time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Matching uploaded file: %s", header.Filename)
	matches, err := s.svc.MatchFile(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Failed to match file: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match file: %v", err))
		return
	}

	dtos := make([]MatchResultDTO, len(matches))
	for i, m := range matches {
		dtos[i] = matchToDTO(m)
	}
	s.log.Infof("Match complete: found %d matches", len(dtos))
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: dtos, Count: len(dtos)})
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSongFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/api/songs/"):]
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSong(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMatchFile(w, r)
}

func songToDTO(song model.Song) SongDTO {
	return SongDTO{
		ID:          song.ID,
		Title:       song.Title,
		Artist:      song.Artist,
		Album:       song.Album,
		DurationSec: song.DurationSec,
	}
}

func matchToDTO(m model.MatchResult) MatchResultDTO {
	return MatchResultDTO{
		SongID:     m.Song.ID,
		Title:      m.Song.Title,
		Artist:     m.Song.Artist,
		Album:      m.Song.Album,
		Peak:       m.Peak,
		ScoreRatio: m.ScoreRatio,
		Confidence: m.Confidence,
		OffsetBin:  m.OffsetBin,
	}
}
