// Package config holds the process-wide settings object, constructed with
// the functional-options pattern.
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Canonical analysis-pipeline constants. These are part of the on-disk
// catalog contract; changing them invalidates an existing catalog, so
// they are not exposed as runtime options.
const (
	AnalysisRate = 22050
	WindowSize   = 4096
	HopSize      = 2048
	FloorDB      = -60.0
	PeakNeighborT = 20
	PeakNeighborF = 20
	MinDeltaFrames = 1
	MaxDeltaFrames = 200
	MaxDeltaFreq   = 200
	FanOut         = 15
	MinAligned     = 5
	MinRatio       = 2.0
	MinConfidence  = 10.0
)

// Streaming recognizer timing constants.
const (
	MinQuerySeconds      = 3 * time.Second
	AttemptEverySeconds  = 2 * time.Second
	MaxQuerySeconds      = 12 * time.Second
	IdleTimeout          = 10 * time.Second
	AttemptTimeout       = 5 * time.Second
)

type Config struct {
	DBPath         string
	SongsDir       string
	Host           string
	Port           int
	AllowedOrigins []string
	WorkerPoolSize int
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

func WithSongsDir(dir string) Option {
	return func(c *Config) { c.SongsDir = dir }
}

func WithBind(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		c.Port = port
	}
}

func WithAllowedOrigins(origins []string) Option {
	return func(c *Config) { c.AllowedOrigins = origins }
}

func WithWorkerPoolSize(n int) Option {
	return func(c *Config) { c.WorkerPoolSize = n }
}

func Default() *Config {
	return &Config{
		DBPath:         envOrDefault("SOUNDTRACE_DB_PATH", "soundtrace.sqlite3"),
		SongsDir:       envOrDefault("SOUNDTRACE_SONGS_DIR", "./songs"),
		Host:           envOrDefault("SOUNDTRACE_HOST", "0.0.0.0"),
		Port:           envIntOrDefault("SOUNDTRACE_PORT", 8080),
		AllowedOrigins: []string{"*"},
		WorkerPoolSize: runtime.NumCPU(),
	}
}

func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 1
	}
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
