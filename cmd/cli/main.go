package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/logging"
	"github.com/soundtrace/soundtrace/internal/service"
)

var (
	dbPath string
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SOUNDTRACE_DB_PATH", "soundtrace.sqlite3"), "Path to the SQLite catalog database")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (*service.Service, catalog.Store, error) {
	store, err := catalog.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return service.New(store, logging.GetLogger()), store, nil
}

func main() {
	log := logging.GetLogger()
	printBanner()

	// Global options such as --db come before the command name.
	flag.Parse()
	os.Args = append([]string{os.Args[0]}, flag.Args()...)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("Executing command: %s", command)

	switch command {
	case "add":
		handleAdd()
	case "ingest":
		handleIngest()
	case "match":
		handleMatch()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(`
 ____                      _ _____
/ ___|  ___  _   _ _ __   __| |_   _| __ __ _  ___ ___
\___ \ / _ \| | | | '_ \ / _` + "`" + ` | | || '__/ _` + "`" + ` |/ __/ _ \
 ___) | (_) | |_| | | | | (_| | | || | | (_| | (_|  __/
|____/ \___/ \__,_|_| |_|\__,_| |_||_|  \__,_|\___\___|

           Audio Fingerprinting CLI
`)
}

func handleAdd() {
	log := logging.GetLogger()

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Song title (required)")
	artist := addCmd.String("artist", "", "Artist name (required)")
	album := addCmd.String("album", "", "Album name (optional)")

	if len(os.Args) < 3 {
		fmt.Println("Usage: soundtrace add <audio_file> --title <title> --artist <artist> [--album <album>]")
		os.Exit(1)
	}
	audioPath := os.Args[2]
	addCmd.Parse(os.Args[3:])

	if *title == "" || *artist == "" {
		fmt.Println("Error: --title and --artist are required")
		log.Warnf("Missing required arguments: title and artist")
		os.Exit(1)
	}

	svc, store, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("Processing audio file...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	songID, err := svc.AddSong(ctx, audioPath, service.Metadata{Title: *title, Artist: *artist, Album: *album})
	if err != nil {
		fmt.Printf("Failed to add song: %v\n", err)
		log.Errorf("AddSong failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("Successfully added song to catalog")
	fmt.Printf("   ID:     %d\n", songID)
	fmt.Printf("   Title:  %s\n", *title)
	fmt.Printf("   Artist: %s\n", *artist)
	log.Infof("Successfully added song ID=%d", songID)
}

// handleIngest walks a directory of WAV files, deriving each song's title
// from its file name (artist is left empty), and reports batch progress
// with an mpb bar.
func handleIngest() {
	log := logging.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: soundtrace ingest <directory>")
		os.Exit(1)
	}
	dir := os.Args[2]

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".wav" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Failed to walk %s: %v\n", dir, err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Println("No .wav files found")
		return
	}

	svc, store, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	p := mpb.New(mpb.WithWidth(60))
	bar := p.AddBar(int64(len(paths)),
		mpb.PrependDecorators(decor.Name("ingesting", decor.WC{W: len("ingesting") + 1, C: decor.DindentRight})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d"), decor.Percentage()),
	)

	ctx := context.Background()
	var added, failed int
	for _, path := range paths {
		title := filepath.Base(path)
		title = title[:len(title)-len(filepath.Ext(title))]
		if _, err := svc.AddSong(ctx, path, service.Metadata{Title: title}); err != nil {
			log.Warnf("failed to ingest %s: %v", path, err)
			failed++
		} else {
			added++
		}
		bar.Increment()
	}
	p.Wait()

	fmt.Printf("Ingested %d song(s), %d failed\n", added, failed)
}

func handleMatch() {
	log := logging.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: soundtrace match <audio_file>")
		os.Exit(1)
	}
	audioPath := os.Args[2]

	svc, store, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("Analyzing audio file...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := svc.MatchFile(ctx, audioPath)
	if err != nil {
		fmt.Printf("Failed to match audio: %v\n", err)
		log.Errorf("MatchFile failed: %v", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("No matches found in catalog")
		return
	}

	fmt.Printf("Found %d match(es):\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. \"%s\" by %s\n", i+1, result.Song.Title, result.Song.Artist)
		fmt.Printf("   Peak: %d | Score ratio: %.2f | Confidence: %.1f%%\n",
			result.Peak, result.ScoreRatio, result.Confidence)
	}
}

func handleList() {
	log := logging.GetLogger()

	svc, store, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	songs, err := svc.ListSongs()
	if err != nil {
		fmt.Printf("Failed to list songs: %v\n", err)
		log.Errorf("ListSongs failed: %v", err)
		os.Exit(1)
	}

	if len(songs) == 0 {
		fmt.Println("No songs in catalog")
		return
	}

	fmt.Printf("%d song(s):\n\n", len(songs))
	for i, song := range songs {
		fmt.Printf("%d. \"%s\" by %s (ID: %d)\n", i+1, song.Title, song.Artist, song.ID)
		if song.DurationSec > 0 {
			fmt.Printf("   Duration: %d:%02d\n", int(song.DurationSec)/60, int(song.DurationSec)%60)
		}
	}
}

func handleDelete() {
	log := logging.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: soundtrace delete <song_id>")
		os.Exit(1)
	}

	songID, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil {
		fmt.Printf("Invalid song ID: %v\n", err)
		os.Exit(1)
	}

	svc, store, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	song, err := svc.GetSong(songID)
	if err != nil {
		fmt.Printf("Song not found (ID: %d)\n", songID)
		log.Warnf("Song %d not found: %v", songID, err)
		os.Exit(1)
	}

	if err := svc.DeleteSong(songID); err != nil {
		fmt.Printf("Failed to delete song: %v\n", err)
		log.Errorf("DeleteSong failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("Successfully deleted song:")
	fmt.Printf("   ID:     %d\n", song.ID)
	fmt.Printf("   Title:  %s\n", song.Title)
	fmt.Printf("   Artist: %s\n", song.Artist)
	log.Infof("Deleted song ID=%d ('%s' by '%s')", song.ID, song.Title, song.Artist)
}

func printUsage() {
	fmt.Println("soundtrace - Audio Fingerprinting CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>   Path to SQLite catalog database (env: SOUNDTRACE_DB_PATH)")
	fmt.Println("\nUsage:")
	fmt.Println("  soundtrace add <audio_file> --title <title> --artist <artist> [--album <album>]")
	fmt.Println("  soundtrace ingest <directory>")
	fmt.Println("  soundtrace match <audio_file>")
	fmt.Println("  soundtrace list")
	fmt.Println("  soundtrace delete <song_id>")
}
