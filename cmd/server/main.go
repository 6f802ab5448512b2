package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/soundtrace/soundtrace/internal/catalog"
	"github.com/soundtrace/soundtrace/internal/config"
	"github.com/soundtrace/soundtrace/internal/service"
)

var (
	port           int
	dbPath         string
	host           string
	allowedOrigins string
	workers        int
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&host, "host", getEnvOrDefault("SOUNDTRACE_HOST", "0.0.0.0"), "HTTP server bind address")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SOUNDTRACE_DB_PATH", "soundtrace.sqlite3"), "Path to SQLite catalog database")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.IntVar(&workers, "workers", 0, "Recognizer worker pool size (0 = number of CPUs)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	store, err := catalog.OpenSQLite(dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	opts := []config.Option{
		config.WithDBPath(dbPath),
		config.WithBind(host, port),
		config.WithAllowedOrigins(origins),
	}
	if workers > 0 {
		opts = append(opts, config.WithWorkerPoolSize(workers))
	}
	cfg := config.New(opts...)

	svc := service.New(store, nil)
	defer svc.Close()

	server := NewServer(svc, store, cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
